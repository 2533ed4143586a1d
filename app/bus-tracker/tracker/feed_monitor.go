package tracker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/OpenTransitTools/bustracker/foundation/httpclient"
	"google.golang.org/protobuf/proto"
)

//feedPosition contains fields read from a GTFS-realtime VehiclePositions feed entity
type feedPosition struct {
	Id        string
	Label     string
	Latitude  float64
	Longitude float64
	//SpeedKmh is nil when the feed did not report a speed
	SpeedKmh  *float64
	Timestamp int64
}

//feedMonitor feeds a GTFS-realtime VehiclePositions feed through the location report pipeline
type feedMonitor struct {
	log       *log.Logger
	client    *http.Client
	url       string
	store     trackerStore
	processor *reportProcessor
	//lastSeen holds the feed timestamp of the last position processed per vehicle
	lastSeen map[string]int64
}

func makeFeedMonitor(log *log.Logger,
	client *http.Client,
	url string,
	store trackerStore,
	processor *reportProcessor) *feedMonitor {
	return &feedMonitor{
		log:       log,
		client:    client,
		url:       url,
		store:     store,
		processor: processor,
		lastSeen:  make(map[string]int64),
	}
}

//runFeedMonitor polls the feed every loopDuration until shutdownSignal
func runFeedMonitor(log *log.Logger,
	wg *sync.WaitGroup,
	monitor *feedMonitor,
	loopDuration time.Duration,
	shutdownSignal chan bool) {
	defer wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleepChan := make(chan bool, 1)
	sleep := time.Duration(0) //sleep for zero seconds the first time

	for {
		go func(sleep time.Duration) {
			time.Sleep(sleep)
			sleepChan <- true
		}(sleep)

		select {
		case <-shutdownSignal:
			log.Printf("Exiting feed monitor on shutdown signal")
			return
		case <-sleepChan:
		}

		sleep = loopDuration
		start := time.Now()

		processed, err := monitor.poll(ctx)
		if err != nil {
			log.Printf("error attempting to process vehicle positions. error:%v\n", err)
			continue
		}

		workTook := time.Now().Sub(start)
		log.Printf("processed %d new vehicle positions, work took %s\n", processed, fmtDuration(workTook))

		if workTook >= loopDuration {
			sleep = time.Duration(0)
		} else {
			sleep = loopDuration - workTook
		}
	}
}

//poll loads the feed once and reports every new position of a known vehicle, returns how many were reported
func (m *feedMonitor) poll(ctx context.Context) (int, error) {
	positions, err := getFeedPositions(ctx, m.log, m.client, m.url)
	if err != nil {
		return 0, err
	}
	vehicles, err := m.store.getVehicles(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to load vehicles: %w", err)
	}
	byLabel := make(map[string]string, len(vehicles))
	byId := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		byLabel[v.Label] = v.VehicleId
		byId[v.VehicleId] = v.VehicleId
	}

	processed := 0
	for _, position := range positions {
		vehicleId, found := byLabel[position.Label]
		if !found || position.Label == "" {
			vehicleId, found = byId[position.Id]
		}
		if !found {
			continue
		}
		if last, seen := m.lastSeen[vehicleId]; seen && position.Timestamp <= last {
			continue
		}
		lat, lon := position.Latitude, position.Longitude
		report := LocationReport{Latitude: &lat, Longitude: &lon, Speed: position.SpeedKmh}
		if _, err = m.processor.process(ctx, vehicleId, report); err != nil {
			m.log.Printf("error processing feed position of vehicle %s, error:%v", vehicleId, err)
			continue
		}
		m.lastSeen[vehicleId] = position.Timestamp
		processed++
	}
	return processed, nil
}

//getFeedPositions retrieves gtfs-realtime vehicle positions and loads them into feedPosition values
func getFeedPositions(ctx context.Context, log *log.Logger, client *http.Client, url string) ([]feedPosition, error) {
	body, err := httpclient.GetBytes(ctx, log, client, url)
	if err != nil {
		return nil, err
	}
	var feed gtfs.FeedMessage
	if err = proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("unable to unmarshal FeedMessage: %w", err)
	}
	return parseFeedPositions(&feed, time.Now().Unix()), nil
}

//parseFeedPositions keeps the vehicle entities that carry an identifier and a position.
//Speed is converted from meters per second to km/h, entities without a timestamp are stamped with now
func parseFeedPositions(feed *gtfs.FeedMessage, now int64) []feedPosition {
	var positions []feedPosition
	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil || vehicle.GetPosition() == nil {
			continue
		}
		descriptor := vehicle.GetVehicle()
		if descriptor.GetId() == "" && descriptor.GetLabel() == "" {
			continue
		}
		p := vehicle.GetPosition()
		position := feedPosition{
			Id:        descriptor.GetId(),
			Label:     descriptor.GetLabel(),
			Latitude:  float64(p.GetLatitude()),
			Longitude: float64(p.GetLongitude()),
			Timestamp: now,
		}
		if p.Speed != nil {
			speed := float64(p.GetSpeed()) * 3.6
			position.SpeedKmh = &speed
		}
		if vehicle.Timestamp != nil {
			position.Timestamp = int64(vehicle.GetTimestamp())
		}
		positions = append(positions, position)
	}
	return positions
}

//fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%03d", m, s, mill)
}
