package tracker

import (
	"context"
	"log"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/jmoiron/sqlx"
)

//trackerStore is the persistence the tracker depends on, implemented by dbStore
type trackerStore interface {
	getVehicle(ctx context.Context, vehicleId string) (*transit.Vehicle, error)
	getVehicles(ctx context.Context) ([]transit.Vehicle, error)
	getRouteData(ctx context.Context, routeId string) (*transit.RouteData, error)
	getLatestSpeed(ctx context.Context, vehicleId string) (*float64, error)
	getAlerts(ctx context.Context, vehicleId string, onlyOpen bool) ([]transit.Alert, error)
	recordVehiclePosition(ctx context.Context, entry *transit.LocationLogEntry) error
	openAlert(ctx context.Context, vehicleId string, alertType string, message string, at time.Time) (bool, error)
	resolveAlerts(ctx context.Context, vehicleId string, alertType string, at time.Time) (int64, error)
}

//dbStore implements trackerStore with the transit package on a postgres database
type dbStore struct {
	log *log.Logger
	db  *sqlx.DB
}

func makeDBStore(log *log.Logger, db *sqlx.DB) *dbStore {
	return &dbStore{log: log, db: db}
}

func (s *dbStore) getVehicle(ctx context.Context, vehicleId string) (*transit.Vehicle, error) {
	return transit.GetVehicle(ctx, s.db, vehicleId)
}

func (s *dbStore) getVehicles(ctx context.Context) ([]transit.Vehicle, error) {
	return transit.GetVehicles(ctx, s.db)
}

func (s *dbStore) getRouteData(ctx context.Context, routeId string) (*transit.RouteData, error) {
	return transit.GetRouteData(ctx, s.log, s.db, routeId)
}

func (s *dbStore) getLatestSpeed(ctx context.Context, vehicleId string) (*float64, error) {
	return transit.GetLatestSpeed(ctx, s.db, vehicleId)
}

func (s *dbStore) getAlerts(ctx context.Context, vehicleId string, onlyOpen bool) ([]transit.Alert, error) {
	return transit.GetAlerts(ctx, s.db, vehicleId, onlyOpen)
}

func (s *dbStore) recordVehiclePosition(ctx context.Context, entry *transit.LocationLogEntry) error {
	return transit.RecordVehiclePosition(ctx, s.log, s.db, entry)
}

func (s *dbStore) openAlert(ctx context.Context,
	vehicleId string,
	alertType string,
	message string,
	at time.Time) (bool, error) {
	return transit.OpenAlert(ctx, s.db, vehicleId, alertType, message, at)
}

func (s *dbStore) resolveAlerts(ctx context.Context, vehicleId string, alertType string, at time.Time) (int64, error) {
	return transit.ResolveAlerts(ctx, s.db, vehicleId, alertType, at)
}
