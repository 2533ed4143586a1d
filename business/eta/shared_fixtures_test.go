package eta

import (
	"fmt"
	"math"
)

//kmPerDegree is the great-circle length of one degree of latitude, or of longitude on the equator
var kmPerDegree = EarthRadiusKm * math.Pi / 180

//northOfOrigin returns the coordinate km kilometers north of 0,0
func northOfOrigin(km float64) Coordinate {
	return Coordinate{Lat: km / kmPerDegree, Lon: 0}
}

func float64Ptr(f float64) *float64 {
	return &f
}

func stringPtr(s string) *string {
	return &s
}

func coordinatePtr(c Coordinate) *Coordinate {
	return &c
}

//equatorStops builds count stops 0.01 degrees apart heading east along the equator with orders 1..count
func equatorStops(count int) []Stop {
	stops := make([]Stop, count)
	for i := range stops {
		stops[i] = Stop{
			ID:         fmt.Sprintf("S%d", i+1),
			Name:       fmt.Sprintf("Stop %d", i+1),
			Order:      i + 1,
			Coordinate: Coordinate{Lat: 0, Lon: float64(i) * 0.01},
		}
	}
	return stops
}

//equatorRoute builds a route over equatorStops, each segment 1000 meters long by road.
//withGeometry controls whether segments carry a two point polyline or are straight-line only
func equatorRoute(stopCount int, withGeometry bool) *RouteSnapshot {
	stops := equatorStops(stopCount)
	var segments []Segment
	for i := 0; i+1 < len(stops); i++ {
		segment := Segment{
			ID:                     int64(i + 1),
			Order:                  stops[i].Order,
			FromStop:               stops[i],
			ToStop:                 stops[i+1],
			DistanceMeters:         1000,
			TypicalDurationSeconds: 120,
		}
		if withGeometry {
			segment.Polyline = Polyline{stops[i].Coordinate, stops[i+1].Coordinate}
		}
		segments = append(segments, segment)
	}
	return NewRouteSnapshot("R1", "Equator Line", stops, segments)
}

func vehicleAt(routeID string, position Coordinate, speed *float64) VehicleState {
	return VehicleState{
		VehicleID:      "V1",
		Label:          "BUS-1",
		RouteID:        stringPtr(routeID),
		Position:       coordinatePtr(position),
		LoggedSpeedKmh: speed,
	}
}
