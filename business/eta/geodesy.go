// Package eta resolves where a vehicle is on its route and estimates when it will reach downstream stops.
// Every function in this package is pure: it works on immutable route snapshots and a single position and
// never touches the network or a database.
package eta

import "math"

// EarthRadiusMeters is the mean earth radius used by all distance calculations
const EarthRadiusMeters = 6371000.0

// EarthRadiusKm is EarthRadiusMeters expressed in kilometers
const EarthRadiusKm = EarthRadiusMeters / 1000

// Coordinate is a WGS84 latitude and longitude in degrees
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
// Identical and antipodal points produce 0 and half the earth's circumference rather than NaN
func HaversineKm(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	//floating point error can push h slightly outside [0,1]
	h = math.Min(1, math.Max(0, h))
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HaversineMeters returns the great-circle distance between a and b in meters
func HaversineMeters(a, b Coordinate) float64 {
	return HaversineKm(a, b) * 1000
}

// Midpoint returns the arithmetic mean of two coordinates.
// only meaningful for coordinates close together (consecutive stops on a route)
func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{
		Lat: (a.Lat + b.Lat) / 2,
		Lon: (a.Lon + b.Lon) / 2,
	}
}

//planarPoint is a position in meters east (x) and north (y) on a local equirectangular plane
type planarPoint struct {
	x float64
	y float64
}

//toPlanar converts c to a local plane scaled at refLat.
//adequate for short range geometry within a transit area, will not work across the antimeridian
func toPlanar(c Coordinate, refLat float64) planarPoint {
	return planarPoint{
		x: toRadians(c.Lon) * EarthRadiusMeters * math.Cos(toRadians(refLat)),
		y: toRadians(c.Lat) * EarthRadiusMeters,
	}
}

func planarDistance(a, b planarPoint) float64 {
	return math.Hypot(b.x-a.x, b.y-a.y)
}
