package main

import (
	"context"
	"fmt"
	logger "log"
	"os"
	"time"

	"github.com/OpenTransitTools/bustracker/app/route-loader/routemanager"
	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/foundation/database"
	"github.com/ardanlabs/conf"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "ROUTE_LOADER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		OSRM struct {
			Server         string `conf:"default:http://router.project-osrm.org"`
			TimeoutSeconds int    `conf:"default:10"`
		}
		Segments struct {
			All   bool `conf:"default:false"`
			Force bool `conf:"default:false"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Load routes, stops and vehicles and generate road segments between stops"
	if err := conf.Parse(os.Args[1:], "ROUTE_LOADER", &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage("ROUTE_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString("ROUTE_LOADER", &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	ctx := context.Background()

	switch cfg.Args.Num(0) {
	case "schema":
		return transit.CreateSchema(ctx, db)

	case "import":
		dir := cfg.Args.Num(1)
		if len(dir) < 1 {
			return fmt.Errorf("expected directory with command import")
		}
		err = routemanager.ImportDirectory(ctx, log, db, dir)
		if err != nil {
			return err
		}
		return routemanager.ListRoutes(ctx, db)

	case "segments":
		return routemanager.GenerateSegments(ctx, log, db, routemanager.SegmentOptions{
			OSRMServer: cfg.OSRM.Server,
			Timeout:    time.Duration(cfg.OSRM.TimeoutSeconds) * time.Second,
			RouteId:    cfg.Args.Num(1),
			All:        cfg.Segments.All,
			Force:      cfg.Segments.Force,
		})

	case "list":
		return routemanager.ListRoutes(ctx, db)

	default:
		fmt.Println("schema: create any missing tables")
		fmt.Println("import <dir>: load stops.txt, routes.txt, route_stops.txt and vehicles.txt from dir")
		fmt.Println("segments [routeId]: fetch road segments for one route, or every route with --segments-all")
		fmt.Println("list: list all routes with their stop and segment counts")
		usage, err := conf.Usage("ROUTE_LOADER", &cfg)
		if err != nil {
			return fmt.Errorf("generating config usage: %w", err)
		}
		fmt.Println(usage)
	}
	return nil
}
