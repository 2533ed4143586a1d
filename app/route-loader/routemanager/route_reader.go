package routemanager

import (
	"context"
	"fmt"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/jmoiron/sqlx"
)

// routeRowReader implements rowReader interface for transit.Route
type routeRowReader struct {
	routes []*transit.Route
}

func (r *routeRowReader) addRow(parser *csvFileParser) error {
	route, err := buildRoute(parser)
	if err != nil {
		return err
	}
	r.routes = append(r.routes, route)
	return nil
}

func (r *routeRowReader) flush(ctx context.Context, tx *sqlx.Tx) error {
	if len(r.routes) == 0 {
		return nil
	}
	err := transit.RecordRoutes(ctx, tx, r.routes)
	if err != nil {
		return err
	}
	r.routes = make([]*transit.Route, 0)
	return nil
}

// buildRoute reads a route, named by route_long_name or route_short_name when the long name is blank
func buildRoute(parser *csvFileParser) (*transit.Route, error) {
	route := transit.Route{}
	route.RouteId = parser.getString("route_id", false)
	route.RouteName = parser.getString("route_long_name", true)
	if len(route.RouteName) == 0 {
		route.RouteName = parser.getString("route_short_name", true)
	}
	if len(route.RouteName) == 0 && parser.getError() == nil {
		parser.addParseError(fmt.Errorf("route %s has neither route_long_name nor route_short_name", route.RouteId))
	}
	return &route, parser.getError()
}

// routeStopRowReader implements rowReader interface for transit.RouteStop.
// All rows are held until flush so each route's stop list is replaced in one statement set
type routeStopRowReader struct {
	routeStops []*transit.RouteStop
	seen       map[string]map[int]string
}

func newRouteStopRowReader() *routeStopRowReader {
	return &routeStopRowReader{
		seen: make(map[string]map[int]string),
	}
}

func (r *routeStopRowReader) addRow(parser *csvFileParser) error {
	routeStop, err := buildRouteStop(parser)
	if err != nil {
		return err
	}
	orders, present := r.seen[routeStop.RouteId]
	if !present {
		orders = make(map[int]string)
		r.seen[routeStop.RouteId] = orders
	}
	if stopId, duplicate := orders[routeStop.StopOrder]; duplicate {
		return fmt.Errorf("route %s has stops %s and %s at stop_order %d",
			routeStop.RouteId, stopId, routeStop.StopId, routeStop.StopOrder)
	}
	orders[routeStop.StopOrder] = routeStop.StopId
	r.routeStops = append(r.routeStops, routeStop)
	return nil
}

func (r *routeStopRowReader) flush(ctx context.Context, tx *sqlx.Tx) error {
	if len(r.routeStops) == 0 {
		return nil
	}
	err := transit.ReplaceRouteStops(ctx, tx, r.routeStops)
	if err != nil {
		return err
	}
	r.routeStops = make([]*transit.RouteStop, 0)
	return nil
}

func buildRouteStop(parser *csvFileParser) (*transit.RouteStop, error) {
	routeStop := transit.RouteStop{}
	routeStop.RouteId = parser.getString("route_id", false)
	routeStop.StopId = parser.getString("stop_id", false)
	routeStop.StopOrder = parser.getInt("stop_order", false)
	return &routeStop, parser.getError()
}
