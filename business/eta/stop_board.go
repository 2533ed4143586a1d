package eta

import (
	"errors"
	"math"
)

// ETASource names the method used to fill a StopBoard
type ETASource string

const (
	// SourceMismatchOrNoLocation means the requested vehicle cannot be estimated on this route
	SourceMismatchOrNoLocation ETASource = "bus_mismatch_or_no_location"
	// SourceSegments means estimates follow road segments
	SourceSegments ETASource = "segment_based_tracking"
	// SourceFallback means estimates use straight lines between stops
	SourceFallback ETASource = "distance_based_fallback"
)

// reasons reported with SourceMismatchOrNoLocation
const (
	ReasonRouteMismatch = "route_mismatch"
	ReasonNoLocation    = "no_location"
	ReasonNoRoute       = "not_assigned"
)

// StopETA is one row of a StopBoard
type StopETA struct {
	StopID         string   `json:"stop_id"`
	StopName       string   `json:"stop_name"`
	Order          int      `json:"order"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	ETASeconds     *int     `json:"eta_seconds"`
	ETAMinutes     *float64 `json:"eta_minutes,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	Passed         bool     `json:"passed"`
	AtStop         *bool    `json:"at_stop,omitempty"`
}

// CurrentSegment describes the segment a vehicle was located on
type CurrentSegment struct {
	FromStop        string  `json:"from_stop"`
	ToStop          string  `json:"to_stop"`
	ProgressPercent float64 `json:"progress"`
}

// StopBoard is every stop of a route with the arrival estimate of one vehicle
type StopBoard struct {
	RouteID               string          `json:"route_id"`
	Stops                 []StopETA       `json:"stops"`
	Source                *ETASource      `json:"eta_source"`
	Reason                string          `json:"reason,omitempty"`
	SpeedKmh              *float64        `json:"speed_kmh,omitempty"`
	CurrentSegment        *CurrentSegment `json:"current_segment,omitempty"`
	DistanceToRouteMeters *float64        `json:"distance_to_route_meters,omitempty"`
	DwellSeconds          *int            `json:"dwell_time_seconds,omitempty"`
	ArrivalThresholdKm    *float64        `json:"arrival_threshold_km,omitempty"`
	StartIndex            *int            `json:"start_index,omitempty"`
	NearestIndex          *int            `json:"nearest_index,omitempty"`
}

// BuildStopBoard lists the stops of route with estimates for vehicle, vehicle may be nil.
// Segment based estimates are used when the route has segments and the vehicle could be located on them,
// otherwise the straight-line fallback.
func (e Estimator) BuildStopBoard(route *RouteSnapshot, vehicle *VehicleState) StopBoard {
	board := StopBoard{
		RouteID: route.RouteID,
		Stops:   make([]StopETA, len(route.Stops)),
	}
	for i, stop := range route.Stops {
		board.Stops[i] = StopETA{
			StopID:    stop.ID,
			StopName:  stop.Name,
			Order:     stop.Order,
			Latitude:  stop.Coordinate.Lat,
			Longitude: stop.Coordinate.Lon,
		}
	}
	if vehicle == nil || len(route.Stops) == 0 {
		return board
	}

	position, err := CheckVehicle(*vehicle, route)
	if err != nil {
		source := SourceMismatchOrNoLocation
		board.Source = &source
		board.Reason = ReasonFor(err)
		return board
	}

	speed := e.SpeedKmh(*vehicle)
	dwell := e.DwellSeconds
	board.SpeedKmh = &speed
	board.DwellSeconds = &dwell

	if location, ok := Locate(position, route); ok {
		e.fillFromSegments(&board, route, *vehicle, location)
		return board
	}
	e.fillFromStops(&board, route, position, speed)
	return board
}

func (e Estimator) fillFromSegments(board *StopBoard, route *RouteSnapshot, vehicle VehicleState, location Location) {
	source := SourceSegments
	board.Source = &source
	current := location.Segment
	currentIndex := route.StopIndex(current.FromStop.Order)
	for i, stop := range route.Stops {
		row := &board.Stops[i]
		if currentIndex >= 0 && i < currentIndex {
			if currentIndex-i < e.PassedStopWindow {
				row.Passed = true
			}
			continue
		}
		estimate, err := e.Estimate(vehicle, route, stop.Order)
		if err != nil {
			continue
		}
		atStop := estimate.AtStop
		row.AtStop = &atStop
		row.ETASeconds = estimate.ETASeconds
		row.ETAMinutes = minutes(*estimate.ETASeconds)
		distance := roundTo(*estimate.DistanceMeters, 1)
		row.DistanceMeters = &distance
	}
	board.CurrentSegment = &CurrentSegment{
		FromStop:        current.FromStop.Name,
		ToStop:          current.ToStop.Name,
		ProgressPercent: roundTo(location.Progress*100, 1),
	}
	distanceToRoute := roundTo(location.DistanceToRouteKm*1000, 1)
	board.DistanceToRouteMeters = &distanceToRoute
}

func (e Estimator) fillFromStops(board *StopBoard, route *RouteSnapshot, position Coordinate, speed float64) {
	source := SourceFallback
	board.Source = &source
	chain := ComputeCumulativeDistances(position, route.Stops, e.ArrivalThresholdKm)
	for i := 0; i < chain.NearestIndex && i < len(board.Stops); i++ {
		if chain.NearestIndex-i < e.PassedStopWindow {
			board.Stops[i].Passed = true
		}
	}
	for i, distanceKm := range chain.DistancesKm {
		index := chain.StartIndex + i
		if index < 0 || index >= len(board.Stops) {
			continue
		}
		seconds := e.FallbackETASeconds(distanceKm, speed, i)
		board.Stops[index].ETASeconds = &seconds
		board.Stops[index].ETAMinutes = minutes(seconds)
	}
	threshold := e.ArrivalThresholdKm
	start := chain.StartIndex
	nearest := chain.NearestIndex
	board.ArrivalThresholdKm = &threshold
	board.StartIndex = &start
	board.NearestIndex = &nearest
}

// ReasonFor names why CheckVehicle rejected a vehicle
func ReasonFor(err error) string {
	var mismatch *RouteMismatchError
	switch {
	case errors.As(err, &mismatch):
		return ReasonRouteMismatch
	case errors.Is(err, ErrNoRoute):
		return ReasonNoRoute
	default:
		return ReasonNoLocation
	}
}

func minutes(seconds int) *float64 {
	m := float64(seconds) / 60
	return &m
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
