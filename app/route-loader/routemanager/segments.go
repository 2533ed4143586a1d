package routemanager

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/OpenTransitTools/bustracker/foundation/httpclient"
	"github.com/jmoiron/sqlx"
)

// fallbackSpeedKmh is used for the typical duration of a segment when no road could be fetched
const fallbackSpeedKmh = 30.0

// publicServerPause is waited between requests made to the public OSRM server
const publicServerPause = 500 * time.Millisecond

// roadFetcher retrieves the driving path between two coordinates
type roadFetcher interface {
	fetchRoad(ctx context.Context, from eta.Coordinate, to eta.Coordinate) (*road, error)
}

// segmentStore is the persistence used while generating segments
type segmentStore interface {
	getRoute(ctx context.Context, routeId string) (*transit.Route, error)
	getRouteSummaries(ctx context.Context) ([]transit.RouteSummary, error)
	getRouteStops(ctx context.Context, routeId string) ([]transit.RouteStopDetail, error)
	countRouteSegments(ctx context.Context, routeId string) (int, error)
	replaceRouteSegments(ctx context.Context, routeId string, segments []*transit.RouteSegment) error
}

// dbSegmentStore implements segmentStore with the transit package
type dbSegmentStore struct {
	log *log.Logger
	db  *sqlx.DB
}

func (d *dbSegmentStore) getRoute(ctx context.Context, routeId string) (*transit.Route, error) {
	return transit.GetRoute(ctx, d.db, routeId)
}

func (d *dbSegmentStore) getRouteSummaries(ctx context.Context) ([]transit.RouteSummary, error) {
	return transit.GetRouteSummaries(ctx, d.db)
}

func (d *dbSegmentStore) getRouteStops(ctx context.Context, routeId string) ([]transit.RouteStopDetail, error) {
	return transit.GetRouteStops(ctx, d.db, routeId)
}

func (d *dbSegmentStore) countRouteSegments(ctx context.Context, routeId string) (int, error) {
	return transit.CountRouteSegments(ctx, d.db, routeId)
}

func (d *dbSegmentStore) replaceRouteSegments(ctx context.Context,
	routeId string,
	segments []*transit.RouteSegment) error {
	return transit.ReplaceRouteSegments(ctx, d.log, d.db, routeId, segments)
}

// SegmentOptions controls which routes GenerateSegments works on
type SegmentOptions struct {
	OSRMServer string
	Timeout    time.Duration
	RouteId    string
	All        bool
	Force      bool
}

// GenerateSegments fetches road geometry between each pair of consecutive stops on the selected routes
// and replaces the segments of each route with the result
func GenerateSegments(ctx context.Context, log *log.Logger, db *sqlx.DB, options SegmentOptions) error {
	if !options.All && len(options.RouteId) == 0 {
		return fmt.Errorf("expected route id or --segments-all")
	}
	client := makeOSRMClient(log, httpclient.New(options.Timeout), options.OSRMServer)
	generator := &segmentGenerator{
		log:     log,
		store:   &dbSegmentStore{log: log, db: db},
		fetcher: client,
		force:   options.Force,
	}
	if client.isPublicServer() {
		generator.pause = publicServerPause
	}
	var routeIds []string
	if options.All {
		summaries, err := generator.store.getRouteSummaries(ctx)
		if err != nil {
			return err
		}
		for _, summary := range summaries {
			routeIds = append(routeIds, summary.RouteId)
		}
	} else {
		routeIds = []string{options.RouteId}
	}
	results, err := generator.generateRoutes(ctx, routeIds)
	for _, result := range results {
		log.Println(result)
	}
	return err
}

// segmentResult describes what happened to a route during segment generation
type segmentResult struct {
	routeId      string
	skipped      string
	created      int
	straightLine int
}

func (s segmentResult) String() string {
	if len(s.skipped) > 0 {
		return fmt.Sprintf("route %s skipped: %s", s.routeId, s.skipped)
	}
	return fmt.Sprintf("route %s: created %d segments, %d without road geometry",
		s.routeId, s.created, s.straightLine)
}

// segmentGenerator builds route segments from the stops of a route and the roads between them
type segmentGenerator struct {
	log     *log.Logger
	store   segmentStore
	fetcher roadFetcher
	force   bool
	pause   time.Duration
}

// generateRoutes runs generateRoute for each routeId, stopping on the first error
func (g *segmentGenerator) generateRoutes(ctx context.Context, routeIds []string) ([]segmentResult, error) {
	results := make([]segmentResult, 0, len(routeIds))
	for _, routeId := range routeIds {
		result, err := g.generateRoute(ctx, routeId)
		if err != nil {
			return results, fmt.Errorf("unable to generate segments for route %s: %w", routeId, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// generateRoute replaces the segments of routeId unless the route has fewer than two stops,
// or already has segments and force is not set
func (g *segmentGenerator) generateRoute(ctx context.Context, routeId string) (segmentResult, error) {
	result := segmentResult{routeId: routeId}
	if _, err := g.store.getRoute(ctx, routeId); err != nil {
		return result, err
	}
	stops, err := g.store.getRouteStops(ctx, routeId)
	if err != nil {
		return result, err
	}
	if len(stops) < 2 {
		result.skipped = fmt.Sprintf("only %d stops", len(stops))
		return result, nil
	}
	if !g.force {
		existing, err := g.store.countRouteSegments(ctx, routeId)
		if err != nil {
			return result, err
		}
		if existing > 0 {
			result.skipped = fmt.Sprintf("already has %d segments", existing)
			return result, nil
		}
	}

	segments := make([]*transit.RouteSegment, 0, len(stops)-1)
	for i := 0; i < len(stops)-1; i++ {
		if i > 0 && g.pause > 0 {
			if err := sleepContext(ctx, g.pause); err != nil {
				return result, err
			}
		}
		segment, fetched := g.buildSegment(ctx, routeId, stops[i], stops[i+1])
		if !fetched {
			result.straightLine++
		}
		segments = append(segments, segment)
	}
	err = g.store.replaceRouteSegments(ctx, routeId, segments)
	if err != nil {
		return result, err
	}
	result.created = len(segments)
	return result, nil
}

// buildSegment creates the segment from one stop to the next. When no road can be fetched the segment is
// a straight line with a duration at fallbackSpeedKmh, fetched is false in that case
func (g *segmentGenerator) buildSegment(ctx context.Context,
	routeId string,
	from transit.RouteStopDetail,
	to transit.RouteStopDetail) (segment *transit.RouteSegment, fetched bool) {
	segment = &transit.RouteSegment{
		RouteId:      routeId,
		FromStopId:   from.StopId,
		ToStopId:     to.StopId,
		SegmentOrder: from.StopOrder,
	}
	fromCoordinate := eta.Coordinate{Lat: from.Latitude, Lon: from.Longitude}
	toCoordinate := eta.Coordinate{Lat: to.Latitude, Lon: to.Longitude}
	road, err := g.fetcher.fetchRoad(ctx, fromCoordinate, toCoordinate)
	if err != nil {
		g.log.Printf("unable to fetch road from stop %s to %s on route %s, using straight line. error: %v",
			from.StopId, to.StopId, routeId, err)
		segment.DistanceMeters = eta.HaversineMeters(fromCoordinate, toCoordinate)
		segment.TypicalDurationSeconds = int(segment.DistanceMeters / (fallbackSpeedKmh / 3.6))
		return segment, false
	}
	segment.DistanceMeters = road.distanceMeters
	segment.TypicalDurationSeconds = int(road.durationSeconds)
	segment.Polyline = road.polyline
	return segment, true
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
