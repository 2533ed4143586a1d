package transit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Vehicle is a bus, its current position is overwritten by every location report.
// RouteId is nil while unassigned, the position fields are nil until the first report
type Vehicle struct {
	VehicleId  string     `db:"vehicle_id" json:"vehicle_id"`
	Label      string     `db:"label" json:"label"`
	RouteId    *string    `db:"route_id" json:"route_id"`
	Latitude   *float64   `db:"latitude" json:"latitude"`
	Longitude  *float64   `db:"longitude" json:"longitude"`
	SpeedKmh   *float64   `db:"speed_kmh" json:"speed_kmh"`
	ReportedAt *time.Time `db:"reported_at" json:"reported_at"`
}

// HasPosition reports whether the vehicle has reported a location
func (v *Vehicle) HasPosition() bool {
	return v != nil && v.Latitude != nil && v.Longitude != nil
}

// RecordVehicles saves new vehicles or updates the label and route assignment of existing ones
func RecordVehicles(ctx context.Context, tx *sqlx.Tx, vehicles []*Vehicle) error {
	statementString := "insert into vehicle ( " +
		"vehicle_id, " +
		"label, " +
		"route_id) " +
		"values (" +
		":vehicle_id, " +
		":label, " +
		":route_id) " +
		"on conflict (vehicle_id) do update set " +
		"label = excluded.label, " +
		"route_id = excluded.route_id"
	statementString = tx.Rebind(statementString)
	for _, vehicle := range vehicles {
		if _, err := tx.NamedExecContext(ctx, statementString, vehicle); err != nil {
			return err
		}
	}
	return nil
}

// GetVehicle retrieves a snapshot of vehicleId, returns sql.ErrNoRows when not found
func GetVehicle(ctx context.Context, db *sqlx.DB, vehicleId string) (*Vehicle, error) {
	vehicle := Vehicle{}
	err := db.GetContext(ctx, &vehicle, db.Rebind("select * from vehicle where vehicle_id = ?"), vehicleId)
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// GetVehicles retrieves every vehicle
func GetVehicles(ctx context.Context, db *sqlx.DB) ([]Vehicle, error) {
	var results []Vehicle
	err := db.SelectContext(ctx, &results, "select * from vehicle order by vehicle_id")
	return results, err
}
