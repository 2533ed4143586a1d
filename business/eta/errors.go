package eta

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSegments is returned when a route has no road segments, callers fall back to straight-line estimates
	ErrNoSegments = errors.New("route has no segments")
	// ErrNotLocated is returned when a position could not be matched to any segment
	ErrNotLocated = errors.New("position could not be matched to a segment")
	// ErrNoPosition is returned for vehicles that have not reported a location yet
	ErrNoPosition = errors.New("vehicle has no current location")
	// ErrNoRoute is returned for vehicles without an assigned route
	ErrNoRoute = errors.New("vehicle is not assigned to a route")
	// ErrUnknownStop is returned when a stop order is not part of the route
	ErrUnknownStop = errors.New("stop is not on route")
	// ErrStopPassed is returned when the target stop lies behind the vehicle's current segment
	ErrStopPassed = errors.New("stop already passed")
)

// RouteMismatchError is returned when a vehicle is queried against a route other than the one it is assigned to
type RouteMismatchError struct {
	VehicleID        string
	AssignedRouteID  string
	RequestedRouteID string
}

func (e *RouteMismatchError) Error() string {
	return fmt.Sprintf("vehicle %s is assigned to route %s, not route %s",
		e.VehicleID, e.AssignedRouteID, e.RequestedRouteID)
}
