// Package routemanager provides support for importing routes, stops and vehicles from csv files
// and generating the road segments between consecutive stops of a route
package routemanager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/foundation/database"
	"github.com/jmoiron/sqlx"
)

// importFile pairs a csv file with the rowReader that records its rows
type importFile struct {
	filename string
	optional bool
	reader   rowReader
}

// importFiles lists the files read by ImportDirectory in the order they must be loaded
func importFiles() []importFile {
	return []importFile{
		{filename: "stops.txt", reader: &stopRowReader{}},
		{filename: "routes.txt", reader: &routeRowReader{}},
		{filename: "route_stops.txt", reader: newRouteStopRowReader()},
		{filename: "vehicles.txt", optional: true, reader: &vehicleRowReader{}},
	}
}

// ImportDirectory loads stops.txt, routes.txt, route_stops.txt and, if present, vehicles.txt from dir.
// Everything is recorded in one transaction, nothing is saved if any file fails to load
func ImportDirectory(ctx context.Context, log *log.Logger, db *sqlx.DB, dir string) error {
	return database.Transact(ctx, log, db, func(tx *sqlx.Tx) error {
		for _, file := range importFiles() {
			path := filepath.Join(dir, file.filename)
			err := loadFile(ctx, log, tx, path, file)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func loadFile(ctx context.Context, log *log.Logger, tx *sqlx.Tx, path string, file importFile) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && file.optional {
			log.Printf("Skipping optional file %s, not present", path)
			return nil
		}
		return fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("error closing %s: %v", path, closeErr)
		}
	}()

	parser, err := makeCSVFileParser(f, file.filename)
	if err != nil {
		return err
	}
	err = loadRows(ctx, tx, parser, file.reader)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d lines from %s", parser.line-2, file.filename)
	return nil
}

// validateCoordinate checks latitude and longitude are in range
func validateCoordinate(latitude float64, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return fmt.Errorf("latitude %f out of range", latitude)
	}
	if longitude < -180 || longitude > 180 {
		return fmt.Errorf("longitude %f out of range", longitude)
	}
	return nil
}

// ListRoutes prints every route with the number of stops and segments it has
func ListRoutes(ctx context.Context, db *sqlx.DB) error {
	routes, err := transit.GetRouteSummaries(ctx, db)
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		fmt.Println("No routes present")
		return nil
	}
	for _, route := range routes {
		fmt.Printf("%s %q stops:%d segments:%d\n", route.RouteId, route.RouteName, route.StopCount, route.SegmentCount)
	}
	return nil
}
