package transit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Stop contains a record from a stops.txt file, a place vehicles pick up riders
type Stop struct {
	StopId    string  `db:"stop_id" json:"stop_id"`
	StopName  string  `db:"stop_name" json:"stop_name"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// RecordStops saves new stops or updates the name and location of existing ones
func RecordStops(ctx context.Context, tx *sqlx.Tx, stops []*Stop) error {
	statementString := "insert into stop ( " +
		"stop_id, " +
		"stop_name, " +
		"latitude, " +
		"longitude) " +
		"values (" +
		":stop_id, " +
		":stop_name, " +
		":latitude, " +
		":longitude) " +
		"on conflict (stop_id) do update set " +
		"stop_name = excluded.stop_name, " +
		"latitude = excluded.latitude, " +
		"longitude = excluded.longitude"
	statementString = tx.Rebind(statementString)
	for _, stop := range stops {
		if _, err := tx.NamedExecContext(ctx, statementString, stop); err != nil {
			return err
		}
	}
	return nil
}

