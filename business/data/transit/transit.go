// Package transit provides CRUD functionality for stops, routes, road segments, vehicles,
// the vehicle location log and vehicle alerts
package transit

import (
	"context"
	"database/sql/driver"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// CreateSchema creates any missing tables and indexes
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("unable to create schema: %w", err)
	}
	return nil
}

//queryer is satisfied by both *sqlx.DB and *sqlx.Tx
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// PolylinePoints is a road geometry stored as a json array of [latitude, longitude] pairs
type PolylinePoints [][2]float64

// Value implements driver.Valuer
func (p PolylinePoints) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *PolylinePoints) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unable to scan %T into PolylinePoints", src)
	}
	var points [][2]float64
	if err := json.Unmarshal(data, &points); err != nil {
		return fmt.Errorf("invalid polyline json: %w", err)
	}
	if len(points) == 0 {
		*p = nil
		return nil
	}
	*p = points
	return nil
}
