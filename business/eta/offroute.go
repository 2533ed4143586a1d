package eta

import "math"

// OffRouteDecision is the outcome of checking one position against a route's stops
type OffRouteDecision struct {
	//Evaluated is false when the route had no stops to compare against, no alert change should follow
	Evaluated bool
	//ShouldAlert is true while the vehicle is farther than the threshold from every stop
	ShouldAlert bool
	//MinDistanceKm is the distance to the nearest stop
	MinDistanceKm float64
	NearestStop   Stop
}

// EvaluateOffRoute compares position with the closest stop of a route.
// The decision is level triggered, callers reconcile the alert state with it on every report.
func EvaluateOffRoute(position Coordinate, stops []Stop, thresholdKm float64) OffRouteDecision {
	if len(stops) == 0 {
		return OffRouteDecision{}
	}
	decision := OffRouteDecision{Evaluated: true, MinDistanceKm: math.Inf(1)}
	for _, stop := range stops {
		d := HaversineKm(position, stop.Coordinate)
		if d < decision.MinDistanceKm {
			decision.MinDistanceKm = d
			decision.NearestStop = stop
		}
	}
	decision.ShouldAlert = decision.MinDistanceKm > thresholdKm
	return decision
}
