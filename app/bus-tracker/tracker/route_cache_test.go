package tracker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/matryer/is"
)

func Test_makeRouteSnapshot(t *testing.T) {
	is := is.New(t)
	data := equatorRouteData(3, true)
	// stored without geometry
	data.Segments[1].Polyline = nil

	snapshot := makeRouteSnapshot(&data)
	is.Equal(snapshot.RouteID, "R1")
	is.Equal(snapshot.Name, "Equator Line")
	is.Equal(len(snapshot.Stops), 3)
	is.Equal(snapshot.Stops[2].ID, "C")
	is.Equal(snapshot.Stops[2].Coordinate, eta.Coordinate{Lat: 0, Lon: 0.02})

	is.Equal(len(snapshot.Segments), 2)
	first := snapshot.Segments[0]
	is.Equal(first.FromStop.ID, "A")
	is.Equal(first.ToStop.ID, "B")
	is.Equal(first.Kind, eta.WithGeometry)
	is.Equal(len(first.Polyline), 3)
	is.Equal(first.Polyline[1], eta.Coordinate{Lat: 0, Lon: 0.005})
	is.Equal(snapshot.Segments[1].Kind, eta.StraightLineOnly)
}

func Test_makeRouteSnapshotSkipsOrphanSegments(t *testing.T) {
	is := is.New(t)
	data := equatorRouteData(3, true)
	data.Segments = append(data.Segments, transit.RouteSegmentDetail{
		RouteSegment:  transit.RouteSegment{Id: 99, RouteId: "R1", SegmentOrder: 3},
		FromStopOrder: 3,
		ToStopOrder:   4,
	})
	snapshot := makeRouteSnapshot(&data)
	is.Equal(len(snapshot.Segments), 2)
}

func TestRouteCache(t *testing.T) {
	tests := []struct {
		name      string
		ttl       time.Duration
		reads     int
		wantLoads int
	}{
		{name: "cached", ttl: time.Minute, reads: 3, wantLoads: 1},
		{name: "disabled", ttl: 0, reads: 3, wantLoads: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := makeTrackedStore(false)
			cache := makeRouteCache(store, 10, tt.ttl)
			for i := 0; i < tt.reads; i++ {
				if _, err := cache.get(context.Background(), "R1"); err != nil {
					t.Fatalf("get() error = %v", err)
				}
			}
			if store.routeLoads != tt.wantLoads {
				t.Errorf("route loaded %d times, want %d", store.routeLoads, tt.wantLoads)
			}
		})
	}
}

func TestRouteCache_missingRoute(t *testing.T) {
	is := is.New(t)
	cache := makeRouteCache(makeTrackedStore(false), 10, time.Minute)
	_, err := cache.get(context.Background(), "R9")
	is.True(errors.Is(err, sql.ErrNoRows))
}
