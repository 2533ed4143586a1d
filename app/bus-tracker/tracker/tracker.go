// Package tracker receives vehicle location reports, keeps off route alerts current, answers arrival
// estimate requests and streams location updates to websocket clients
package tracker

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/OpenTransitTools/bustracker/foundation/httpclient"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

//Config holds the settings of the tracker services
type Config struct {
	HttpPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	//NatsSubject is the subject prefix location updates are published under, one token per route
	NatsSubject   string
	Estimator     eta.Estimator
	SpeedCacheTTL time.Duration
	RouteCacheTTL time.Duration
	CacheSize     int
	//VehiclePositionsUrl enables polling a GTFS-realtime feed when not empty
	VehiclePositionsUrl string
	LoadEvery           time.Duration
}

//StartServices brings up the web service, the location listener and the feed monitor.
//natsConn may be nil, location updates then go straight to websocket clients.
//Exits application on shutdown signal
func StartServices(log *log.Logger,
	db *sqlx.DB,
	natsConn *nats.Conn,
	cfg Config,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	store := makeDBStore(log, db)
	routes := makeRouteCache(store, cfg.CacheSize, cfg.RouteCacheTTL)
	speeds := makeSpeedCache(store, cfg.CacheSize, cfg.SpeedCacheTTL)
	hub := makeWsHub(log)

	var publisher locationPublisher = hub
	if natsConn != nil {
		publisher = makeNatsLocationPublisher(log, natsConn, cfg.NatsSubject)
	}
	processor := makeReportProcessor(log, store, routes, speeds, publisher, cfg.Estimator)
	estimates := &estimates{store: store, routes: routes, speeds: speeds, estimator: cfg.Estimator}

	router := createRouter(log, store, routes, estimates, processor, hub)
	srv := createServer(router, cfg.HttpPort, cfg.ReadTimeout, cfg.WriteTimeout)

	//create shutdown channels
	var shutdownChannels []chan bool
	newShutdownChannel := func() chan bool {
		ch := make(chan bool, 1)
		shutdownChannels = append(shutdownChannels, ch)
		wg.Add(1)
		return ch
	}

	//start all child services
	go runWebService(log, &wg, srv, hub, newShutdownChannel())
	if natsConn != nil {
		go runLocationListener(log, &wg, natsConn, hub, cfg.NatsSubject, newShutdownChannel())
	}
	if cfg.VehiclePositionsUrl != "" {
		monitor := makeFeedMonitor(log, httpclient.New(cfg.LoadEvery*2), cfg.VehiclePositionsUrl, store, processor)
		go runFeedMonitor(log, &wg, monitor, cfg.LoadEvery, newShutdownChannel())
	}

	<-shutdownSignal
	log.Printf("Exiting on shutdown signal, shutting down subroutines")
	for _, ch := range shutdownChannels {
		ch <- true
	}
	wg.Wait()
	log.Printf("Subroutines shut down, exiting bus tracker")
}
