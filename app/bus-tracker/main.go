package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenTransitTools/bustracker/app/bus-tracker/tracker"
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/OpenTransitTools/bustracker/foundation/database"
	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "BUS_TRACKER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		DB struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Web struct {
			Port                int `conf:"default:8000"`
			ReadTimeoutSeconds  int `conf:"default:15"`
			WriteTimeoutSeconds int `conf:"default:15"`
		}
		NATS struct {
			Url     string `conf:"default:nats://localhost:4222"`
			Subject string `conf:"default:bus-locations"`
			Enabled bool   `conf:"default:false"`
		}
		ETA struct {
			DefaultSpeedKmh     float64 `conf:"default:30"`
			MinSpeedKmh         float64 `conf:"default:1"`
			DwellSeconds        int     `conf:"default:90"`
			ArrivalThresholdKm  float64 `conf:"default:0.1"`
			AtStopMeters        float64 `conf:"default:50"`
			AtStopSeconds       int     `conf:"default:30"`
			PassedStopWindow    int     `conf:"default:3"`
			OffRouteThresholdKm float64 `conf:"default:0.5"`
			SpeedCacheSeconds   int     `conf:"default:5"`
			RouteCacheSeconds   int     `conf:"default:30"`
			CacheSize           int     `conf:"default:1000"`
		}
		Feed struct {
			VehiclePositionsUrl string
			LoadEverySeconds    int `conf:"default:5"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Track buses along their routes and estimate arrivals at stops"
	const prefix = "BUS_TRACKER"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
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

	// =========================================================================
	// Start NATS

	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		log.Printf("main: Connecting to nats at %s", cfg.NATS.Url)
		natsConn, err = nats.Connect(cfg.NATS.Url, nats.Name("bus-tracker"))
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsConn.Close()
	}

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	tracker.StartServices(log, db, natsConn, tracker.Config{
		HttpPort:     cfg.Web.Port,
		ReadTimeout:  time.Duration(cfg.Web.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Web.WriteTimeoutSeconds) * time.Second,
		NatsSubject:  cfg.NATS.Subject,
		Estimator: eta.Estimator{
			DwellSeconds:        cfg.ETA.DwellSeconds,
			DefaultSpeedKmh:     cfg.ETA.DefaultSpeedKmh,
			MinSpeedKmh:         cfg.ETA.MinSpeedKmh,
			ArrivalThresholdKm:  cfg.ETA.ArrivalThresholdKm,
			AtStopMaxMeters:     cfg.ETA.AtStopMeters,
			AtStopMaxSeconds:    cfg.ETA.AtStopSeconds,
			PassedStopWindow:    cfg.ETA.PassedStopWindow,
			OffRouteThresholdKm: cfg.ETA.OffRouteThresholdKm,
		},
		SpeedCacheTTL:       time.Duration(cfg.ETA.SpeedCacheSeconds) * time.Second,
		RouteCacheTTL:       time.Duration(cfg.ETA.RouteCacheSeconds) * time.Second,
		CacheSize:           cfg.ETA.CacheSize,
		VehiclePositionsUrl: cfg.Feed.VehiclePositionsUrl,
		LoadEvery:           time.Duration(cfg.Feed.LoadEverySeconds) * time.Second,
	}, shutdown)
	return nil
}
