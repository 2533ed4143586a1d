package eta

import "time"

// VehicleState is a point in time copy of a vehicle as needed for estimates
type VehicleState struct {
	VehicleID string
	Label     string
	//RouteID is nil when the vehicle is not assigned to a route
	RouteID *string
	//Position is nil until the vehicle reports its first location
	Position   *Coordinate
	ReportedAt time.Time
	//LoggedSpeedKmh is the speed of the most recent location log entry, nil if none was reported
	LoggedSpeedKmh *float64
}

// Estimator holds the tuning values used to turn a located vehicle into arrival estimates
type Estimator struct {
	//DwellSeconds is the time spent at every stop crossed, including the target stop
	DwellSeconds int
	DefaultSpeedKmh float64
	MinSpeedKmh     float64
	//ArrivalThresholdKm is the radius within which the fallback treats a vehicle as arrived at a stop
	ArrivalThresholdKm float64
	//AtStopMaxMeters and AtStopMaxSeconds must both be undercut for a vehicle to be reported at a stop
	AtStopMaxMeters  float64
	AtStopMaxSeconds int
	//PassedStopWindow is how many stops behind the vehicle are still listed as passed.
	//Product has not confirmed the value of 3.
	PassedStopWindow int
	//OffRouteThresholdKm is the distance from every stop of the route beyond which a vehicle is off route
	OffRouteThresholdKm float64
}

// DefaultEstimator returns an Estimator with the standard tuning
func DefaultEstimator() Estimator {
	return Estimator{
		DwellSeconds:        90,
		DefaultSpeedKmh:     DefaultSpeedKmh,
		MinSpeedKmh:         MinSpeedKmh,
		ArrivalThresholdKm:  0.1,
		AtStopMaxMeters:     50,
		AtStopMaxSeconds:    30,
		PassedStopWindow:    3,
		OffRouteThresholdKm: 0.5,
	}
}

// StopEstimate is the estimate for one stop, nil values mean no estimate could be made
type StopEstimate struct {
	ETASeconds     *int     `json:"eta_seconds"`
	DistanceMeters *float64 `json:"distance_meters"`
	AtStop         bool     `json:"at_stop"`
}

// SpeedKmh resolves the travel speed for vehicle
func (e Estimator) SpeedKmh(vehicle VehicleState) float64 {
	defaultKmh := e.DefaultSpeedKmh
	if defaultKmh <= 0 {
		defaultKmh = DefaultSpeedKmh
	}
	return resolveSpeed(vehicle.LoggedSpeedKmh, defaultKmh, e.minSpeedKmh())
}

// minSpeedKmh is the configured speed floor, MinSpeedKmh when unset
func (e Estimator) minSpeedKmh() float64 {
	if e.MinSpeedKmh <= 0 {
		return MinSpeedKmh
	}
	return e.MinSpeedKmh
}

// ETASeconds estimates seconds until vehicle reaches the stop at targetStopOrder on route
func (e Estimator) ETASeconds(vehicle VehicleState, route *RouteSnapshot, targetStopOrder int) (int, error) {
	remaining, err := e.remainingTo(vehicle, route, targetStopOrder)
	if err != nil {
		return 0, err
	}
	return e.travelSeconds(vehicle, remaining), nil
}

// RoadDistanceMeters returns the distance along the route between vehicle and the stop at targetStopOrder
func (e Estimator) RoadDistanceMeters(vehicle VehicleState, route *RouteSnapshot, targetStopOrder int) (float64, error) {
	remaining, err := e.remainingTo(vehicle, route, targetStopOrder)
	if err != nil {
		return 0, err
	}
	return remaining.distanceMeters, nil
}

// Estimate combines ETASeconds and RoadDistanceMeters and decides whether the vehicle is at the stop
func (e Estimator) Estimate(vehicle VehicleState, route *RouteSnapshot, targetStopOrder int) (StopEstimate, error) {
	remaining, err := e.remainingTo(vehicle, route, targetStopOrder)
	if err != nil {
		return StopEstimate{}, err
	}
	seconds := e.travelSeconds(vehicle, remaining)
	distance := remaining.distanceMeters
	return StopEstimate{
		ETASeconds:     &seconds,
		DistanceMeters: &distance,
		AtStop:         distance < e.AtStopMaxMeters && seconds < e.AtStopMaxSeconds,
	}, nil
}

//remaining is the part of the route between a vehicle and a target stop
type remaining struct {
	distanceMeters float64
	//segmentsCrossed counts whole segments between the current segment and the target stop
	segmentsCrossed int
	//atOrigin is set when the target is the first stop of the vehicle's current segment
	atOrigin bool
}

func (e Estimator) travelSeconds(vehicle VehicleState, r remaining) int {
	travel := r.distanceMeters / kmhToMetersPerSecond(e.SpeedKmh(vehicle))
	if r.atOrigin {
		return int(travel)
	}
	return int(travel + float64((r.segmentsCrossed+1)*e.DwellSeconds))
}

func (e Estimator) remainingTo(vehicle VehicleState, route *RouteSnapshot, targetStopOrder int) (remaining, error) {
	position, err := CheckVehicle(vehicle, route)
	if err != nil {
		return remaining{}, err
	}
	if _, ok := route.StopByOrder(targetStopOrder); !ok {
		return remaining{}, ErrUnknownStop
	}
	if !route.HasSegments() {
		return remaining{}, ErrNoSegments
	}
	location, ok := Locate(position, route)
	if !ok {
		return remaining{}, ErrNotLocated
	}
	current := location.Segment

	if current.FromStop.Order == targetStopOrder {
		return remaining{
			distanceMeters: HaversineMeters(position, current.FromStop.Coordinate),
			atOrigin:       true,
		}, nil
	}
	if targetStopOrder < current.FromStop.Order {
		return remaining{}, ErrStopPassed
	}

	r := remaining{distanceMeters: current.DistanceMeters * (1 - location.Progress)}
	for _, segment := range route.Segments {
		if segment.Order > current.Order && segment.ToStop.Order <= targetStopOrder {
			r.distanceMeters += segment.DistanceMeters
			r.segmentsCrossed++
		}
	}
	return r, nil
}

// CheckVehicle verifies vehicle can be estimated against route and returns its position.
// A vehicle assigned elsewhere produces a *RouteMismatchError, distinct from ErrNoPosition.
func CheckVehicle(vehicle VehicleState, route *RouteSnapshot) (Coordinate, error) {
	if vehicle.RouteID == nil {
		return Coordinate{}, ErrNoRoute
	}
	if route != nil && *vehicle.RouteID != route.RouteID {
		return Coordinate{}, &RouteMismatchError{
			VehicleID:        vehicle.VehicleID,
			AssignedRouteID:  *vehicle.RouteID,
			RequestedRouteID: route.RouteID,
		}
	}
	if vehicle.Position == nil {
		return Coordinate{}, ErrNoPosition
	}
	return *vehicle.Position, nil
}
