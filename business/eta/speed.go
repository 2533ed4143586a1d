package eta

import "math"

const (
	// DefaultSpeedKmh is assumed when a vehicle has never reported a usable speed
	DefaultSpeedKmh = 30.0
	// MinSpeedKmh is the lowest speed used for travel time, a stationary vehicle still gets a finite ETA
	MinSpeedKmh = 1.0
)

// ResolveSpeedKmh returns the speed to use for travel time given the vehicle's latest logged speed
func ResolveSpeedKmh(logged *float64) float64 {
	return resolveSpeed(logged, DefaultSpeedKmh, MinSpeedKmh)
}

func resolveSpeed(logged *float64, defaultKmh, minKmh float64) float64 {
	speed := defaultKmh
	if logged != nil && !math.IsNaN(*logged) && !math.IsInf(*logged, 0) {
		speed = *logged
	}
	if speed < minKmh {
		return minKmh
	}
	return speed
}

//kmhToMetersPerSecond converts speed for use with distances in meters
func kmhToMetersPerSecond(kmh float64) float64 {
	return kmh / 3.6
}
