package routemanager

import (
	"context"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/jmoiron/sqlx"
)

// stopRowReader implements rowReader interface for transit.Stop
type stopRowReader struct {
	stops []*transit.Stop
}

func (s *stopRowReader) addRow(parser *csvFileParser) error {
	stop, err := buildStop(parser)
	if err != nil {
		return err
	}
	s.stops = append(s.stops, stop)
	return nil
}

func (s *stopRowReader) flush(ctx context.Context, tx *sqlx.Tx) error {
	if len(s.stops) == 0 {
		return nil
	}
	err := transit.RecordStops(ctx, tx, s.stops)
	if err != nil {
		return err
	}
	s.stops = make([]*transit.Stop, 0)
	return nil
}

func buildStop(parser *csvFileParser) (*transit.Stop, error) {
	stop := transit.Stop{}
	stop.StopId = parser.getString("stop_id", false)
	stop.StopName = parser.getString("stop_name", false)
	stop.Latitude = parser.getFloat64("stop_lat", false)
	stop.Longitude = parser.getFloat64("stop_lon", false)
	if err := parser.getError(); err != nil {
		return nil, err
	}
	return &stop, validateCoordinate(stop.Latitude, stop.Longitude)
}
