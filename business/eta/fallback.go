package eta

// CumulativeDistances is the straight-line distance chain from a point along a route's stops
type CumulativeDistances struct {
	//StartIndex is the index of the first stop still ahead of the point
	StartIndex int
	//DistancesKm[i] is the distance from the point to stop StartIndex+i via every stop in between
	DistancesKm []float64
	//NearestIndex is the index of the stop closest to the point
	NearestIndex int
}

// ComputeCumulativeDistances builds the straight-line distance chain used when a route has no road geometry.
// A point within arrivalThresholdKm of a stop other than the last is considered arrived there, and the chain
// starts at the following stop.
func ComputeCumulativeDistances(point Coordinate, stops []Stop, arrivalThresholdKm float64) CumulativeDistances {
	if len(stops) == 0 {
		return CumulativeDistances{}
	}
	nearest := 0
	nearestDistance := HaversineKm(point, stops[0].Coordinate)
	for i := 1; i < len(stops); i++ {
		d := HaversineKm(point, stops[i].Coordinate)
		if d < nearestDistance {
			nearest = i
			nearestDistance = d
		}
	}

	start := nearest
	if nearestDistance <= arrivalThresholdKm && nearest < len(stops)-1 {
		start = nearest + 1
	}

	distances := make([]float64, 0, len(stops)-start)
	total := HaversineKm(point, stops[start].Coordinate)
	distances = append(distances, total)
	for i := start + 1; i < len(stops); i++ {
		total += HaversineKm(stops[i-1].Coordinate, stops[i].Coordinate)
		distances = append(distances, total)
	}
	return CumulativeDistances{
		StartIndex:   start,
		DistancesKm:  distances,
		NearestIndex: nearest,
	}
}

// FallbackETASeconds converts a chain distance to seconds, chainPosition 0 is the first stop ahead and
// is charged one dwell, each following stop one more.
func (e Estimator) FallbackETASeconds(distanceKm float64, speedKmh float64, chainPosition int) int {
	if minKmh := e.minSpeedKmh(); speedKmh < minKmh {
		speedKmh = minKmh
	}
	return int(distanceKm/speedKmh*3600) + (chainPosition+1)*e.DwellSeconds
}
