package transit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/OpenTransitTools/bustracker/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Route contains a record from a routes.txt file
type Route struct {
	RouteId   string `db:"route_id" json:"route_id"`
	RouteName string `db:"route_name" json:"route_name"`
}

// RouteStop places a Stop on a Route, StopOrder defines the order the route visits its stops
type RouteStop struct {
	RouteId   string `db:"route_id" json:"route_id"`
	StopId    string `db:"stop_id" json:"stop_id"`
	StopOrder int    `db:"stop_order" json:"stop_order"`
}

// RouteStopDetail is a RouteStop joined with its Stop
type RouteStopDetail struct {
	RouteStop
	StopName  string  `db:"stop_name" json:"stop_name"`
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// RouteSummary counts the stops and segments of a route
type RouteSummary struct {
	Route
	StopCount    int `db:"stop_count" json:"stop_count"`
	SegmentCount int `db:"segment_count" json:"segment_count"`
}

// RouteData is everything needed to estimate arrivals on a route, read at a single point in time
type RouteData struct {
	Route    Route
	Stops    []RouteStopDetail
	Segments []RouteSegmentDetail
}

// RecordRoutes saves new routes or renames existing ones
func RecordRoutes(ctx context.Context, tx *sqlx.Tx, routes []*Route) error {
	statementString := tx.Rebind("insert into route (route_id, route_name) values (:route_id, :route_name) " +
		"on conflict (route_id) do update set route_name = excluded.route_name")
	for _, route := range routes {
		if _, err := tx.NamedExecContext(ctx, statementString, route); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRouteStops removes the stops of every route present in routeStops and saves routeStops in their place
func ReplaceRouteStops(ctx context.Context, tx *sqlx.Tx, routeStops []*RouteStop) error {
	if len(routeStops) == 0 {
		return nil
	}
	routeIds := make([]string, 0)
	seen := make(map[string]bool)
	for _, rs := range routeStops {
		if !seen[rs.RouteId] {
			seen[rs.RouteId] = true
			routeIds = append(routeIds, rs.RouteId)
		}
	}
	query, args, err := database.PrepareNamedQueryFromMap("delete from route_stop where route_id in (:route_ids)",
		tx, map[string]interface{}{"route_ids": routeIds})
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("unable to remove existing route stops: %w", err)
	}

	statementString := "insert into route_stop ( " +
		"route_id, " +
		"stop_id, " +
		"stop_order) " +
		"values (" +
		":route_id, " +
		":stop_id, " +
		":stop_order)"
	statementString = tx.Rebind(statementString)
	_, err = tx.NamedExecContext(ctx, statementString, routeStops)
	return err
}

// GetRoute retrieves the route with routeId, returns sql.ErrNoRows when not found
func GetRoute(ctx context.Context, q queryer, routeId string) (*Route, error) {
	route := Route{}
	err := sqlx.GetContext(ctx, q, &route, q.Rebind("select * from route where route_id = ?"), routeId)
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// GetRouteSummaries retrieves every route with counts of its stops and segments
func GetRouteSummaries(ctx context.Context, db *sqlx.DB) ([]RouteSummary, error) {
	query := "select r.route_id, r.route_name, " +
		"(select count(*) from route_stop rs where rs.route_id = r.route_id) as stop_count, " +
		"(select count(*) from route_segment seg where seg.route_id = r.route_id) as segment_count " +
		"from route r order by r.route_id"
	var results []RouteSummary
	err := db.SelectContext(ctx, &results, query)
	return results, err
}

// GetRouteStops retrieves the stops of routeId in route order
func GetRouteStops(ctx context.Context, q queryer, routeId string) ([]RouteStopDetail, error) {
	query := "select rs.route_id, rs.stop_id, rs.stop_order, s.stop_name, s.latitude, s.longitude " +
		"from route_stop rs join stop s on s.stop_id = rs.stop_id " +
		"where rs.route_id = ? order by rs.stop_order"
	var results []RouteStopDetail
	err := sqlx.SelectContext(ctx, q, &results, q.Rebind(query), routeId)
	return results, err
}

// GetRouteData loads a route with its stops and segments inside one read only snapshot,
// a concurrent segment regeneration is seen either entirely or not at all.
// Returns sql.ErrNoRows if the route does not exist
func GetRouteData(ctx context.Context, log *log.Logger, db *sqlx.DB, routeId string) (*RouteData, error) {
	var data RouteData
	err := database.ReadSnapshot(ctx, log, db, func(tx *sqlx.Tx) error {
		route, err := GetRoute(ctx, tx, routeId)
		if err != nil {
			return err
		}
		data.Route = *route
		data.Stops, err = GetRouteStops(ctx, tx, routeId)
		if err != nil {
			return fmt.Errorf("unable to retrieve stops for route %s: %w", routeId, err)
		}
		data.Segments, err = GetRouteSegments(ctx, tx, routeId)
		if err != nil {
			return fmt.Errorf("unable to retrieve segments for route %s: %w", routeId, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("unable to load route %s: %w", routeId, err)
	}
	return &data, nil
}
