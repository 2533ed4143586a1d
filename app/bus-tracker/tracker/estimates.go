package tracker

import (
	"context"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
)

const (
	detailNotAssigned = "Bus is not assigned to a route."
	detailNoLocation  = "Bus has no current location."
	detailNoStops     = "Route has no stops."
	detailRouteEnd    = "Bus is at the last stop or beyond route end."
)

//estimates answers arrival questions by combining stored vehicles and routes with the eta.Estimator
type estimates struct {
	store     trackerStore
	routes    *routeCache
	speeds    *speedCache
	estimator eta.Estimator
}

//vehicleETAResponse is the arrival outlook of one vehicle, Detail explains an empty outlook
type vehicleETAResponse struct {
	Detail string `json:"detail,omitempty"`
	eta.VehicleSummary
}

//segmentPosition is where a vehicle was matched on the segments of its route
type segmentPosition struct {
	VehicleId             string   `json:"vehicle_id"`
	RouteId               *string  `json:"route_id"`
	Located               bool     `json:"located"`
	Reason                string   `json:"reason,omitempty"`
	SegmentId             *int64   `json:"segment_id,omitempty"`
	SegmentOrder          *int     `json:"segment_order,omitempty"`
	FromStopId            string   `json:"from_stop_id,omitempty"`
	ToStopId              string   `json:"to_stop_id,omitempty"`
	Geometry              string   `json:"geometry,omitempty"`
	Progress              *float64 `json:"progress,omitempty"`
	DistanceToRouteMeters *float64 `json:"distance_to_route_meters,omitempty"`
}

//reasonNoSegments is reported by segmentPosition for routes without road segments
const reasonNoSegments = "no_segments"

//reasonNotLocated is reported by segmentPosition when no segment matched the position
const reasonNotLocated = "not_located"

//vehicleState copies vehicle into the form used by eta.Estimator, including its latest logged speed
func (s *estimates) vehicleState(ctx context.Context, vehicle *transit.Vehicle) (eta.VehicleState, error) {
	state := eta.VehicleState{
		VehicleID: vehicle.VehicleId,
		Label:     vehicle.Label,
		RouteID:   vehicle.RouteId,
	}
	if vehicle.HasPosition() {
		state.Position = &eta.Coordinate{Lat: *vehicle.Latitude, Lon: *vehicle.Longitude}
	}
	if vehicle.ReportedAt != nil {
		state.ReportedAt = *vehicle.ReportedAt
	}
	speed, err := s.speeds.latestSpeed(ctx, vehicle.VehicleId)
	if err != nil {
		return state, err
	}
	state.LoggedSpeedKmh = speed
	return state, nil
}

//stopBoard lists the stops of routeId, with estimates for vehicleId unless it is empty
func (s *estimates) stopBoard(ctx context.Context, routeId string, vehicleId string) (*eta.StopBoard, error) {
	route, err := s.routes.get(ctx, routeId)
	if err != nil {
		return nil, err
	}
	if vehicleId == "" {
		board := s.estimator.BuildStopBoard(route, nil)
		return &board, nil
	}
	vehicle, err := s.store.getVehicle(ctx, vehicleId)
	if err != nil {
		return nil, err
	}
	state, err := s.vehicleState(ctx, vehicle)
	if err != nil {
		return nil, err
	}
	board := s.estimator.BuildStopBoard(route, &state)
	return &board, nil
}

//vehicleSummary estimates the arrival of vehicleId at every stop still ahead of it on its own route
func (s *estimates) vehicleSummary(ctx context.Context, vehicleId string) (*vehicleETAResponse, error) {
	vehicle, err := s.store.getVehicle(ctx, vehicleId)
	if err != nil {
		return nil, err
	}
	response := vehicleETAResponse{
		VehicleSummary: eta.VehicleSummary{ETAToEachStop: []eta.UpcomingStop{}},
	}
	if vehicle.RouteId == nil {
		response.Detail = detailNotAssigned
		return &response, nil
	}
	if !vehicle.HasPosition() {
		response.Detail = detailNoLocation
		return &response, nil
	}
	route, err := s.routes.get(ctx, *vehicle.RouteId)
	if err != nil {
		return nil, err
	}
	if len(route.Stops) == 0 {
		response.Detail = detailNoStops
		return &response, nil
	}
	state, err := s.vehicleState(ctx, vehicle)
	if err != nil {
		return nil, err
	}
	summary, ahead := s.estimator.Summarize(route, state)
	response.VehicleSummary = summary
	if !ahead {
		response.Detail = detailRouteEnd
	}
	return &response, nil
}

//vehicleSegment locates vehicleId on the segments of its route
func (s *estimates) vehicleSegment(ctx context.Context, vehicleId string) (*segmentPosition, error) {
	vehicle, err := s.store.getVehicle(ctx, vehicleId)
	if err != nil {
		return nil, err
	}
	result := segmentPosition{VehicleId: vehicle.VehicleId, RouteId: vehicle.RouteId}
	if vehicle.RouteId == nil {
		result.Reason = eta.ReasonNoRoute
		return &result, nil
	}
	route, err := s.routes.get(ctx, *vehicle.RouteId)
	if err != nil {
		return nil, err
	}
	state, err := s.vehicleState(ctx, vehicle)
	if err != nil {
		return nil, err
	}
	position, err := eta.CheckVehicle(state, route)
	if err != nil {
		result.Reason = eta.ReasonFor(err)
		return &result, nil
	}
	if !route.HasSegments() {
		result.Reason = reasonNoSegments
		return &result, nil
	}
	location, located := eta.Locate(position, route)
	if !located {
		result.Reason = reasonNotLocated
		return &result, nil
	}
	segment := location.Segment
	segmentId := segment.ID
	segmentOrder := segment.Order
	progress := location.Progress
	distance := location.DistanceToRouteKm * 1000
	result.Located = true
	result.SegmentId = &segmentId
	result.SegmentOrder = &segmentOrder
	result.FromStopId = segment.FromStop.ID
	result.ToStopId = segment.ToStop.ID
	result.Geometry = segment.Kind.String()
	result.Progress = &progress
	result.DistanceToRouteMeters = &distance
	return &result, nil
}
