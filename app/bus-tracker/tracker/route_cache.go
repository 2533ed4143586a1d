package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/bluele/gcache"
)

//routeCache holds immutable eta.RouteSnapshot values for a short time so that a burst of ETA requests
//against one route reads the database once. A zero ttl disables caching
type routeCache struct {
	store trackerStore
	cache gcache.Cache
}

func makeRouteCache(store trackerStore, size int, ttl time.Duration) *routeCache {
	c := &routeCache{store: store}
	if ttl > 0 && size > 0 {
		c.cache = gcache.New(size).LRU().Expiration(ttl).Build()
	}
	return c
}

//get returns the snapshot of routeId, loading it when missing or expired
func (c *routeCache) get(ctx context.Context, routeId string) (*eta.RouteSnapshot, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(routeId)
		if err == nil {
			return cached.(*eta.RouteSnapshot), nil
		}
		if !errors.Is(err, gcache.KeyNotFoundError) {
			return nil, err
		}
	}
	data, err := c.store.getRouteData(ctx, routeId)
	if err != nil {
		return nil, err
	}
	snapshot := makeRouteSnapshot(data)
	if c.cache != nil {
		_ = c.cache.Set(routeId, snapshot)
	}
	return snapshot, nil
}

//makeRouteSnapshot converts the rows of a route into the engine's view of it.
//Segments whose stops are no longer on the route are skipped
func makeRouteSnapshot(data *transit.RouteData) *eta.RouteSnapshot {
	stops := make([]eta.Stop, 0, len(data.Stops))
	stopsByOrder := make(map[int]eta.Stop, len(data.Stops))
	for _, rs := range data.Stops {
		stop := eta.Stop{
			ID:    rs.StopId,
			Name:  rs.StopName,
			Order: rs.StopOrder,
			Coordinate: eta.Coordinate{
				Lat: rs.Latitude,
				Lon: rs.Longitude,
			},
		}
		stops = append(stops, stop)
		stopsByOrder[stop.Order] = stop
	}

	segments := make([]eta.Segment, 0, len(data.Segments))
	for _, seg := range data.Segments {
		from, fromFound := stopsByOrder[seg.FromStopOrder]
		to, toFound := stopsByOrder[seg.ToStopOrder]
		if !fromFound || !toFound {
			continue
		}
		segments = append(segments, eta.Segment{
			ID:                     seg.Id,
			Order:                  seg.SegmentOrder,
			FromStop:               from,
			ToStop:                 to,
			DistanceMeters:         seg.DistanceMeters,
			TypicalDurationSeconds: seg.TypicalDurationSeconds,
			Polyline:               toPolyline(seg.Polyline),
		})
	}
	return eta.NewRouteSnapshot(data.Route.RouteId, data.Route.RouteName, stops, segments)
}

func toPolyline(points transit.PolylinePoints) eta.Polyline {
	if len(points) == 0 {
		return nil
	}
	line := make(eta.Polyline, len(points))
	for i, p := range points {
		line[i] = eta.Coordinate{Lat: p[0], Lon: p[1]}
	}
	return line
}
