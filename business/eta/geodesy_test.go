package eta

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name      string
		a         Coordinate
		b         Coordinate
		want      float64
		tolerance float64
	}{
		{
			name: "identical points",
			a:    Coordinate{Lat: 45.5231, Lon: -122.6765},
			b:    Coordinate{Lat: 45.5231, Lon: -122.6765},
			want: 0,
		},
		{
			name:      "one degree along the equator",
			a:         Coordinate{Lat: 0, Lon: 0},
			b:         Coordinate{Lat: 0, Lon: 1},
			want:      111.195,
			tolerance: 0.001,
		},
		{
			name:      "antipodal points are half the circumference",
			a:         Coordinate{Lat: 0, Lon: 0},
			b:         Coordinate{Lat: 0, Lon: 180},
			want:      math.Pi * EarthRadiusKm,
			tolerance: 0.000001,
		},
		{
			name:      "pole to pole",
			a:         Coordinate{Lat: 90, Lon: 0},
			b:         Coordinate{Lat: -90, Lon: 0},
			want:      math.Pi * EarthRadiusKm,
			tolerance: 0.000001,
		},
		{
			name:      "short hop across downtown",
			a:         Coordinate{Lat: 45.518995, Lon: -122.678791},
			b:         Coordinate{Lat: 45.523066, Lon: -122.676483},
			want:      0.487,
			tolerance: 0.005,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			if math.IsNaN(got) {
				t.Fatalf("expected %f, got NaN", tt.want)
			}
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("expected %f within %f, got %f", tt.want, tt.tolerance, got)
			}
			if reverse := HaversineKm(tt.b, tt.a); math.Abs(reverse-got) > 1e-9 {
				t.Errorf("distance is not symmetric, %f and %f", got, reverse)
			}
		})
	}
}

func TestHaversineMeters(t *testing.T) {
	got := HaversineMeters(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 0, Lon: 0.01})
	if math.Abs(got-1111.95) > 0.01 {
		t.Errorf("expected about 1111.95 meters, got %f", got)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Coordinate{Lat: 45, Lon: -122}, Coordinate{Lat: 46, Lon: -123})
	if got.Lat != 45.5 || got.Lon != -122.5 {
		t.Errorf("unexpected midpoint %+v", got)
	}
}

func Test_toPlanar(t *testing.T) {
	a := toPlanar(Coordinate{Lat: 45, Lon: -122}, 45)
	b := toPlanar(Coordinate{Lat: 45, Lon: -121.99}, 45)
	got := planarDistance(a, b)
	want := HaversineMeters(Coordinate{Lat: 45, Lon: -122}, Coordinate{Lat: 45, Lon: -121.99})
	if math.Abs(got-want) > 0.01 {
		t.Errorf("planar distance %f too far from great-circle distance %f", got, want)
	}
}
