package routemanager

import (
	"context"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/jmoiron/sqlx"
)

// vehicleRowReader implements rowReader interface for transit.Vehicle
type vehicleRowReader struct {
	vehicles []*transit.Vehicle
}

func (v *vehicleRowReader) addRow(parser *csvFileParser) error {
	vehicle, err := buildVehicle(parser)
	if err != nil {
		return err
	}
	v.vehicles = append(v.vehicles, vehicle)
	return nil
}

func (v *vehicleRowReader) flush(ctx context.Context, tx *sqlx.Tx) error {
	if len(v.vehicles) == 0 {
		return nil
	}
	err := transit.RecordVehicles(ctx, tx, v.vehicles)
	if err != nil {
		return err
	}
	v.vehicles = make([]*transit.Vehicle, 0)
	return nil
}

// buildVehicle reads a vehicle, label defaults to vehicle_id and a blank route_id leaves the vehicle unassigned
func buildVehicle(parser *csvFileParser) (*transit.Vehicle, error) {
	vehicle := transit.Vehicle{}
	vehicle.VehicleId = parser.getString("vehicle_id", false)
	vehicle.Label = parser.getString("label", true)
	if len(vehicle.Label) == 0 {
		vehicle.Label = vehicle.VehicleId
	}
	vehicle.RouteId = parser.getStringPointer("route_id", true)
	return &vehicle, parser.getError()
}
