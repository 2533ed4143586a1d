package eta

import (
	"fmt"
	"sort"
)

// GeometryKind tells how a Segment is measured against a vehicle position
type GeometryKind int

const (
	// StraightLineOnly segments have no road geometry, only their two stops
	StraightLineOnly GeometryKind = iota
	// WithGeometry segments carry a road following polyline
	WithGeometry
)

func (k GeometryKind) String() string {
	switch k {
	case StraightLineOnly:
		return "straight_line"
	case WithGeometry:
		return "polyline"
	}
	return fmt.Sprintf("GeometryKind(%d)", int(k))
}

// Stop is a stop as seen by one route, Order is the position of the stop within that route
type Stop struct {
	ID         string
	Name       string
	Order      int
	Coordinate Coordinate
}

// Segment is the road path between two consecutive stops of a route
type Segment struct {
	ID                     int64
	Order                  int
	FromStop               Stop
	ToStop                 Stop
	DistanceMeters         float64
	TypicalDurationSeconds int
	Kind                   GeometryKind
	Polyline               Polyline
}

// RouteSnapshot is an immutable view of a route's stops and segments, both sorted by Order.
// Callers must not modify a snapshot once built, a changed route is published as a new snapshot.
type RouteSnapshot struct {
	RouteID  string
	Name     string
	Stops    []Stop
	Segments []Segment
}

// NewRouteSnapshot copies and orders stops and segments and resolves each segment's GeometryKind
func NewRouteSnapshot(routeID string, name string, stops []Stop, segments []Segment) *RouteSnapshot {
	s := &RouteSnapshot{
		RouteID:  routeID,
		Name:     name,
		Stops:    make([]Stop, len(stops)),
		Segments: make([]Segment, len(segments)),
	}
	copy(s.Stops, stops)
	copy(s.Segments, segments)
	sort.SliceStable(s.Stops, func(i, j int) bool {
		return s.Stops[i].Order < s.Stops[j].Order
	})
	sort.SliceStable(s.Segments, func(i, j int) bool {
		return s.Segments[i].Order < s.Segments[j].Order
	})
	for i := range s.Segments {
		seg := &s.Segments[i]
		if len(seg.Polyline) > 0 {
			line := make(Polyline, len(seg.Polyline))
			copy(line, seg.Polyline)
			seg.Polyline = line
			seg.Kind = WithGeometry
		} else {
			seg.Polyline = nil
			seg.Kind = StraightLineOnly
		}
	}
	return s
}

// HasSegments reports whether any road segments exist for the route
func (r *RouteSnapshot) HasSegments() bool {
	return len(r.Segments) > 0
}

// StopIndex returns the index into Stops of the stop at order, or -1
func (r *RouteSnapshot) StopIndex(order int) int {
	i := sort.Search(len(r.Stops), func(i int) bool {
		return r.Stops[i].Order >= order
	})
	if i < len(r.Stops) && r.Stops[i].Order == order {
		return i
	}
	return -1
}

// StopByOrder returns the stop at order
func (r *RouteSnapshot) StopByOrder(order int) (Stop, bool) {
	i := r.StopIndex(order)
	if i < 0 {
		return Stop{}, false
	}
	return r.Stops[i], true
}
