package transit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/OpenTransitTools/bustracker/foundation/database"
	"github.com/jmoiron/sqlx"
)

// LocationLogEntry is an append only record of a location report as received
type LocationLogEntry struct {
	Id        int64     `db:"id" json:"id"`
	VehicleId string    `db:"vehicle_id" json:"vehicle_id"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	SpeedKmh  *float64  `db:"speed_kmh" json:"speed_kmh"`
	LoggedAt  time.Time `db:"logged_at" json:"logged_at"`
}

// RecordVehiclePosition overwrites the current position of the vehicle and appends entry to the location log
// in one transaction. Returns sql.ErrNoRows when the vehicle does not exist
func RecordVehiclePosition(ctx context.Context, log *log.Logger, db *sqlx.DB, entry *LocationLogEntry) error {
	return database.Transact(ctx, log, db, func(tx *sqlx.Tx) error {
		statementString := "update vehicle set " +
			"latitude = :latitude, " +
			"longitude = :longitude, " +
			"speed_kmh = :speed_kmh, " +
			"reported_at = :logged_at " +
			"where vehicle_id = :vehicle_id"
		result, err := tx.NamedExecContext(ctx, tx.Rebind(statementString), entry)
		if err != nil {
			return fmt.Errorf("unable to update position of vehicle %s: %w", entry.VehicleId, err)
		}
		updated, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if updated == 0 {
			return sql.ErrNoRows
		}
		return recordLocationLog(ctx, tx, entry)
	})
}

func recordLocationLog(ctx context.Context, tx *sqlx.Tx, entry *LocationLogEntry) error {
	statementString := "insert into location_log ( " +
		"vehicle_id, " +
		"latitude, " +
		"longitude, " +
		"speed_kmh, " +
		"logged_at) " +
		"values (" +
		":vehicle_id, " +
		":latitude, " +
		":longitude, " +
		":speed_kmh, " +
		":logged_at) returning id"
	query, args, err := tx.BindNamed(statementString, entry)
	if err != nil {
		return err
	}
	err = tx.GetContext(ctx, &entry.Id, query, args...)
	if err != nil {
		return fmt.Errorf("unable to append location log for vehicle %s: %w", entry.VehicleId, err)
	}
	return nil
}

// GetLatestSpeed returns the speed of the newest location log entry of vehicleId,
// nil when the vehicle never logged a location or did not report a speed with it
func GetLatestSpeed(ctx context.Context, db *sqlx.DB, vehicleId string) (*float64, error) {
	var speed *float64
	query := db.Rebind("select speed_kmh from location_log where vehicle_id = ? " +
		"order by logged_at desc, id desc limit 1")
	err := db.GetContext(ctx, &speed, query, vehicleId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return speed, nil
}
