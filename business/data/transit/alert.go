package transit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// AlertTypeOffRoute marks a vehicle that is too far from every stop of its route
const AlertTypeOffRoute = "OFF_ROUTE"

// openAlertConflictTarget must match the partial unique index alert_one_open_per_type in schema.sql,
// postgres only infers that index for the upsert in OpenAlert when column list and predicate are the same
const openAlertConflictTarget = "(vehicle_id, alert_type) where not is_resolved"

// Alert is a condition raised for a vehicle, at most one unresolved Alert exists per vehicle and AlertType
type Alert struct {
	Id         int64      `db:"id" json:"id"`
	VehicleId  string     `db:"vehicle_id" json:"vehicle_id"`
	AlertType  string     `db:"alert_type" json:"alert_type"`
	Message    string     `db:"message" json:"message"`
	IsResolved bool       `db:"is_resolved" json:"is_resolved"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at"`
}

// OpenAlert creates the unresolved alert of alertType for vehicleId or, when one is already open, updates its message.
// created is true only when a new alert was inserted
func OpenAlert(ctx context.Context,
	db *sqlx.DB,
	vehicleId string,
	alertType string,
	message string,
	at time.Time) (created bool, err error) {
	statementString := "insert into alert (vehicle_id, alert_type, message, is_resolved, created_at, updated_at) " +
		"values (?, ?, ?, false, ?, ?) " +
		"on conflict " + openAlertConflictTarget + " do update set " +
		"message = excluded.message, " +
		"updated_at = excluded.updated_at " +
		"returning (xmax = 0) as created"
	err = db.GetContext(ctx, &created, db.Rebind(statementString), vehicleId, alertType, message, at, at)
	return created, err
}

// ResolveAlerts resolves every open alert of alertType for vehicleId, returning how many were resolved
func ResolveAlerts(ctx context.Context, db *sqlx.DB, vehicleId string, alertType string, at time.Time) (int64, error) {
	statementString := "update alert set is_resolved = true, resolved_at = ?, updated_at = ? " +
		"where vehicle_id = ? and alert_type = ? and not is_resolved"
	result, err := db.ExecContext(ctx, db.Rebind(statementString), at, at, vehicleId, alertType)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetAlerts retrieves the alerts of vehicleId newest first, only unresolved ones when onlyOpen is set
func GetAlerts(ctx context.Context, db *sqlx.DB, vehicleId string, onlyOpen bool) ([]Alert, error) {
	query := "select * from alert where vehicle_id = ?"
	if onlyOpen {
		query += " and not is_resolved"
	}
	query += " order by created_at desc, id desc"
	results := make([]Alert, 0)
	err := db.SelectContext(ctx, &results, db.Rebind(query), vehicleId)
	return results, err
}
