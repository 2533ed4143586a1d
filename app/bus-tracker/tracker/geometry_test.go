package tracker

import (
	"testing"

	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/matryer/is"
	"github.com/paulmach/orb"
)

func Test_routeGeometry_segmentLines(t *testing.T) {
	from := eta.Stop{ID: "A", Name: "Stop A", Order: 1, Coordinate: eta.Coordinate{Lat: 0, Lon: 0}}
	to := eta.Stop{ID: "B", Name: "Stop B", Order: 2, Coordinate: eta.Coordinate{Lat: 0, Lon: 0.01}}
	tests := []struct {
		name     string
		polyline eta.Polyline
		want     orb.LineString
	}{
		{
			name:     "road geometry kept",
			polyline: eta.Polyline{{Lat: 0, Lon: 0}, {Lat: 0.001, Lon: 0.005}, {Lat: 0, Lon: 0.01}},
			want:     orb.LineString{{0, 0}, {0.005, 0.001}, {0.01, 0}},
		},
		{
			name:     "single point drawn between stops",
			polyline: eta.Polyline{{Lat: 0.001, Lon: 0.005}},
			want:     orb.LineString{{0, 0}, {0.01, 0}},
		},
		{
			name:     "no geometry drawn between stops",
			polyline: nil,
			want:     orb.LineString{{0, 0}, {0.01, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			route := eta.NewRouteSnapshot("R1", "Test", []eta.Stop{from, to}, []eta.Segment{
				{ID: 1, Order: 1, FromStop: from, ToStop: to, DistanceMeters: 1112, Polyline: tt.polyline},
			})
			fc := routeGeometry(route)
			is.Equal(len(fc.Features), 3)
			line, ok := fc.Features[2].Geometry.(orb.LineString)
			is.True(ok)
			is.Equal(line, tt.want)
		})
	}
}
