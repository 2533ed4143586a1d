package eta

import "math"

// Location is where a vehicle was found on its route
type Location struct {
	//Segment points into the RouteSnapshot the location was computed from
	Segment *Segment
	//Progress is the fraction of Segment already travelled, 0 at FromStop and 1 at ToStop
	Progress float64
	//DistanceToRouteKm is the distance between the vehicle and Segment
	DistanceToRouteKm float64
}

// Locate selects the segment of route closest to position.
// Every segment is evaluated and the global minimum distance wins, ties keep the lowest ordered segment.
// Returns false when the route has no segments.
func Locate(position Coordinate, route *RouteSnapshot) (Location, bool) {
	if route == nil || len(route.Segments) == 0 {
		return Location{}, false
	}
	best := Location{DistanceToRouteKm: math.Inf(1)}
	for i := range route.Segments {
		segment := &route.Segments[i]
		distance, progress := measureSegment(position, segment)
		if distance < best.DistanceToRouteKm {
			best = Location{
				Segment:           segment,
				Progress:          clampRatio(progress),
				DistanceToRouteKm: distance,
			}
		}
	}
	if best.Segment == nil {
		return Location{}, false
	}
	return best, true
}

//measureSegment returns the distance in km from position to segment and the progress along it
func measureSegment(position Coordinate, segment *Segment) (float64, float64) {
	if segment.Kind == WithGeometry {
		p := Project(position, segment.Polyline)
		return p.DistanceKm, p.Progress
	}
	from := segment.FromStop.Coordinate
	to := segment.ToStop.Coordinate
	distance := HaversineKm(position, Midpoint(from, to))
	stopDistance := HaversineKm(from, to)
	if stopDistance <= 0 {
		return distance, 0
	}
	return distance, HaversineKm(position, from) / stopDistance
}
