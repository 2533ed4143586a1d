package transit

import (
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestPolylinePoints_Value(t *testing.T) {
	is := is.New(t)
	value, err := PolylinePoints{{45.5, -122.6}, {45.51, -122.61}}.Value()
	is.NoErr(err)
	is.Equal(value, "[[45.5,-122.6],[45.51,-122.61]]")

	value, err = PolylinePoints(nil).Value()
	is.NoErr(err)
	is.Equal(value, "[]")
}

func TestPolylinePoints_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    PolylinePoints
		wantErr bool
	}{
		{
			name: "bytes from a jsonb column",
			src:  []byte("[[45.5, -122.6], [45.51, -122.61]]"),
			want: PolylinePoints{{45.5, -122.6}, {45.51, -122.61}},
		},
		{
			name: "text column",
			src:  "[[1,2]]",
			want: PolylinePoints{{1, 2}},
		},
		{
			name: "empty array has no geometry",
			src:  []byte("[]"),
			want: nil,
		},
		{
			name: "null has no geometry",
			src:  nil,
			want: nil,
		},
		{
			name:    "not json",
			src:     []byte("LINESTRING(1 2, 3 4)"),
			wantErr: true,
		},
		{
			name:    "unsupported type",
			src:     42,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			var got PolylinePoints
			err := got.Scan(tt.src)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(len(got), len(tt.want))
			for i := range tt.want {
				is.Equal(got[i], tt.want[i])
			}
		})
	}
}

func TestVehicle_HasPosition(t *testing.T) {
	is := is.New(t)
	lat, lon := 45.5, -122.6
	is.True(!(&Vehicle{VehicleId: "1"}).HasPosition())
	is.True(!(&Vehicle{VehicleId: "1", Latitude: &lat}).HasPosition())
	is.True((&Vehicle{VehicleId: "1", Latitude: &lat, Longitude: &lon}).HasPosition())
	var missing *Vehicle
	is.True(!missing.HasPosition())
}

func TestLocationUpdate_Topic(t *testing.T) {
	is := is.New(t)
	routeId := "12"
	empty := ""
	is.Equal(LocationUpdate{RouteId: &routeId}.Topic(), "12")
	is.Equal(LocationUpdate{RouteId: &empty}.Topic(), "unassigned")
	is.Equal(LocationUpdate{Timestamp: time.Now()}.Topic(), "unassigned")
}

func TestOpenAlert_conflictTargetMatchesSchema(t *testing.T) {
	is := is.New(t)
	index := "create unique index if not exists alert_one_open_per_type on alert " + openAlertConflictTarget + ";"
	is.True(strings.Contains(schema, index))
}
