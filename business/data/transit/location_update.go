package transit

import (
	"fmt"
	"time"
)

// LocationUpdate is broadcast to subscribers after a vehicle's location report has been saved
type LocationUpdate struct {
	VehicleId string    `json:"vehicle_id"`
	Label     string    `json:"label"`
	RouteId   *string   `json:"route_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SpeedKmh  *float64  `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
	OffRoute  bool      `json:"off_route"`
}

// Topic returns the topic suffix subscribers use to select updates, the route id or "unassigned"
func (u LocationUpdate) Topic() string {
	if u.RouteId == nil || *u.RouteId == "" {
		return "unassigned"
	}
	return *u.RouteId
}

func (u LocationUpdate) String() string {
	return fmt.Sprintf("LocationUpdate vehicle:%s label:%s lat:%f lon:%f at:%s",
		u.VehicleId, u.Label, u.Latitude, u.Longitude, u.Timestamp.Format(time.RFC3339))
}
