package eta

import "math"

//degenerateLengthMeters is the total polyline length below which all points are treated as coinciding
const degenerateLengthMeters = 0.001

// Polyline is an ordered list of coordinates following a road
type Polyline []Coordinate

// Projection is the result of projecting a point onto a Polyline
type Projection struct {
	//SegmentIndex is the index of the polyline sub-segment (points SegmentIndex and SegmentIndex+1) closest to the point
	SegmentIndex int
	//DistanceKm is the distance from the point to the closest point on the polyline
	DistanceKm float64
	//Progress is the fraction (0..1) of the polyline's length found before the closest point
	Progress float64
}

// Project finds the closest point on line to point.
// Polylines with fewer than two points, or whose points all coincide, are handled with a nearest point search and
// report zero progress. An empty polyline has nothing to be near and reports an infinite distance.
func Project(point Coordinate, line Polyline) Projection {
	if len(line) < 2 {
		return nearestPointProjection(point, line)
	}

	refLat := point.Lat
	p := toPlanar(point, refLat)
	points := make([]planarPoint, len(line))
	for i, c := range line {
		points[i] = toPlanar(c, refLat)
	}

	//cumulative[i] is the length of the polyline up to points[i]
	cumulative := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cumulative[i] = cumulative[i-1] + planarDistance(points[i-1], points[i])
	}
	totalLength := cumulative[len(cumulative)-1]
	if totalLength <= degenerateLengthMeters {
		return nearestPointProjection(point, line)
	}

	bestDistance := math.Inf(1)
	bestAlong := 0.0
	bestIndex := 0
	for i := 0; i+1 < len(points); i++ {
		start := points[i]
		end := points[i+1]
		vx := end.x - start.x
		vy := end.y - start.y
		lengthSquared := vx*vx + vy*vy
		t := 0.0
		if lengthSquared > 0 {
			t = ((p.x-start.x)*vx + (p.y-start.y)*vy) / lengthSquared
			t = math.Min(1, math.Max(0, t))
		}
		projected := planarPoint{x: start.x + t*vx, y: start.y + t*vy}
		distance := planarDistance(p, projected)
		if distance < bestDistance {
			bestDistance = distance
			bestAlong = cumulative[i] + t*(cumulative[i+1]-cumulative[i])
			bestIndex = i
		}
	}

	return Projection{
		SegmentIndex: bestIndex,
		DistanceKm:   bestDistance / 1000,
		Progress:     clampRatio(bestAlong / totalLength),
	}
}

//nearestPointProjection handles degenerate polylines by measuring the great-circle distance to the nearest point
func nearestPointProjection(point Coordinate, line Polyline) Projection {
	best := math.Inf(1)
	for _, c := range line {
		d := HaversineKm(point, c)
		if d < best {
			best = d
		}
	}
	return Projection{SegmentIndex: 0, DistanceKm: best, Progress: 0}
}

//clampRatio keeps ratio inside [0,1], NaN becomes 0
func clampRatio(ratio float64) float64 {
	if math.IsNaN(ratio) || ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Length returns the great-circle length of the polyline in meters
func (l Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(l); i++ {
		total += HaversineMeters(l[i-1], l[i])
	}
	return total
}
