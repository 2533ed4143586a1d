package tracker

import (
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

//routeGeometry exports route as GeoJSON, one point per stop and one line string per segment.
//A segment without road geometry, or with fewer than two points of it, is drawn as a straight line between its stops
func routeGeometry(route *eta.RouteSnapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, stop := range route.Stops {
		f := geojson.NewFeature(toPoint(stop.Coordinate))
		f.Properties["kind"] = "stop"
		f.Properties["route_id"] = route.RouteID
		f.Properties["stop_id"] = stop.ID
		f.Properties["stop_name"] = stop.Name
		f.Properties["order"] = stop.Order
		fc.Append(f)
	}
	for _, segment := range route.Segments {
		var line orb.LineString
		if segment.Kind == eta.WithGeometry && len(segment.Polyline) >= 2 {
			line = make(orb.LineString, 0, len(segment.Polyline))
			for _, c := range segment.Polyline {
				line = append(line, toPoint(c))
			}
		} else {
			line = orb.LineString{toPoint(segment.FromStop.Coordinate), toPoint(segment.ToStop.Coordinate)}
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "segment"
		f.Properties["route_id"] = route.RouteID
		f.Properties["segment_id"] = segment.ID
		f.Properties["order"] = segment.Order
		f.Properties["from_stop_id"] = segment.FromStop.ID
		f.Properties["to_stop_id"] = segment.ToStop.ID
		f.Properties["distance_meters"] = segment.DistanceMeters
		f.Properties["geometry"] = segment.Kind.String()
		fc.Append(f)
	}
	return fc
}

//toPoint converts c to an orb.Point, which is ordered longitude first
func toPoint(c eta.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}
