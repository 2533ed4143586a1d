package transit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/OpenTransitTools/bustracker/foundation/database"
	"github.com/jmoiron/sqlx"
)

// RouteSegment is the road path between two consecutive stops on a route.
// SegmentOrder is the StopOrder of FromStopId, an empty Polyline means no road geometry is known
type RouteSegment struct {
	Id                     int64          `db:"id" json:"id"`
	RouteId                string         `db:"route_id" json:"route_id"`
	FromStopId             string         `db:"from_stop_id" json:"from_stop_id"`
	ToStopId               string         `db:"to_stop_id" json:"to_stop_id"`
	SegmentOrder           int            `db:"segment_order" json:"segment_order"`
	DistanceMeters         float64        `db:"distance_meters" json:"distance_meters"`
	TypicalDurationSeconds int            `db:"typical_duration_seconds" json:"typical_duration_seconds"`
	Polyline               PolylinePoints `db:"polyline" json:"polyline"`
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
}

// RouteSegmentDetail is a RouteSegment joined with the order of its stops on the route
type RouteSegmentDetail struct {
	RouteSegment
	FromStopOrder int `db:"from_stop_order" json:"from_stop_order"`
	ToStopOrder   int `db:"to_stop_order" json:"to_stop_order"`
}

// GetRouteSegments retrieves the segments of routeId ordered by SegmentOrder
func GetRouteSegments(ctx context.Context, q queryer, routeId string) ([]RouteSegmentDetail, error) {
	query := "select seg.*, f.stop_order as from_stop_order, t.stop_order as to_stop_order " +
		"from route_segment seg " +
		"join route_stop f on f.route_id = seg.route_id and f.stop_id = seg.from_stop_id " +
		"join route_stop t on t.route_id = seg.route_id and t.stop_id = seg.to_stop_id " +
		"where seg.route_id = ? order by seg.segment_order"
	var results []RouteSegmentDetail
	err := sqlx.SelectContext(ctx, q, &results, q.Rebind(query), routeId)
	return results, err
}

// CountRouteSegments returns how many segments routeId has
func CountRouteSegments(ctx context.Context, db *sqlx.DB, routeId string) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, db.Rebind("select count(*) from route_segment where route_id = ?"), routeId)
	return count, err
}

// ReplaceRouteSegments deletes every segment of routeId and saves segments in their place in a single transaction
func ReplaceRouteSegments(ctx context.Context,
	log *log.Logger,
	db *sqlx.DB,
	routeId string,
	segments []*RouteSegment) error {
	now := time.Now()
	for _, segment := range segments {
		if segment.RouteId != routeId {
			return fmt.Errorf("segment %s->%s belongs to route %s not %s",
				segment.FromStopId, segment.ToStopId, segment.RouteId, routeId)
		}
		segment.CreatedAt = now
	}
	return database.Transact(ctx, log, db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind("delete from route_segment where route_id = ?"), routeId)
		if err != nil {
			return fmt.Errorf("unable to delete segments for route %s: %w", routeId, err)
		}
		if len(segments) == 0 {
			return nil
		}
		statementString := "insert into route_segment ( " +
			"route_id, " +
			"from_stop_id, " +
			"to_stop_id, " +
			"segment_order, " +
			"distance_meters, " +
			"typical_duration_seconds, " +
			"polyline, " +
			"created_at) " +
			"values (" +
			":route_id, " +
			":from_stop_id, " +
			":to_stop_id, " +
			":segment_order, " +
			":distance_meters, " +
			":typical_duration_seconds, " +
			":polyline, " +
			":created_at)"
		statementString = tx.Rebind(statementString)
		_, err = tx.NamedExecContext(ctx, statementString, segments)
		if err != nil {
			return fmt.Errorf("unable to insert segments for route %s: %w", routeId, err)
		}
		return nil
	})
}
