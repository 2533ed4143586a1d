package eta

// NextStop identifies the first stop still ahead of a vehicle
type NextStop struct {
	StopID   string `json:"stop_id"`
	StopName string `json:"stop_name"`
	Order    int    `json:"order"`
}

// UpcomingStop is an estimate for one stop still ahead of a vehicle
type UpcomingStop struct {
	StopID     string  `json:"stop_id"`
	StopName   string  `json:"stop_name"`
	Order      int     `json:"order"`
	ETASeconds int     `json:"eta_seconds"`
	ETAMinutes float64 `json:"eta_minutes"`
}

// VehicleSummary is the arrival outlook of one vehicle on its own route
type VehicleSummary struct {
	Source             *ETASource     `json:"eta_source"`
	SpeedKmh           *float64       `json:"speed_kmh"`
	ArrivalThresholdKm *float64       `json:"arrival_threshold_km"`
	NextStop           *NextStop      `json:"next_stop"`
	ETAToNextStop      *int           `json:"eta_to_next_stop_seconds"`
	ETAToEachStop      []UpcomingStop `json:"eta_to_each_stop"`
}

// Summarize lists the stops ahead of vehicle on route in order with their estimates.
// The first stop of the segment the vehicle is on is behind it and left out.
// The returned bool is false when no stop is ahead, the vehicle is at the last stop or beyond the route end.
func (e Estimator) Summarize(route *RouteSnapshot, vehicle VehicleState) (VehicleSummary, bool) {
	board := e.BuildStopBoard(route, &vehicle)
	summary := VehicleSummary{
		Source:        board.Source,
		SpeedKmh:      board.SpeedKmh,
		ETAToEachStop: []UpcomingStop{},
	}
	threshold := e.ArrivalThresholdKm
	summary.ArrivalThresholdKm = &threshold

	behind := -1
	if board.Source != nil && *board.Source == SourceSegments {
		if location, ok := Locate(*vehicle.Position, route); ok {
			behind = location.Segment.FromStop.Order
		}
	}
	for _, row := range board.Stops {
		if row.ETASeconds == nil || (row.AtStop != nil && *row.AtStop) || row.Order == behind {
			continue
		}
		summary.ETAToEachStop = append(summary.ETAToEachStop, UpcomingStop{
			StopID:     row.StopID,
			StopName:   row.StopName,
			Order:      row.Order,
			ETASeconds: *row.ETASeconds,
			ETAMinutes: float64(*row.ETASeconds) / 60,
		})
	}
	if len(summary.ETAToEachStop) == 0 {
		return summary, false
	}
	first := summary.ETAToEachStop[0]
	summary.NextStop = &NextStop{StopID: first.StopID, StopName: first.StopName, Order: first.Order}
	seconds := first.ETASeconds
	summary.ETAToNextStop = &seconds
	return summary, true
}
