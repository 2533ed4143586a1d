package tracker

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
)

type testLogWriter struct {
	mu       sync.Mutex
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "BUS_TRACKER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

func strPtr(s string) *string {
	return &s
}

func float64Ptr(f float64) *float64 {
	return &f
}

//fakeStore is an in memory trackerStore
type fakeStore struct {
	mu         sync.Mutex
	vehicles   map[string]*transit.Vehicle
	routes     map[string]*transit.RouteData
	logEntries []transit.LocationLogEntry
	alerts     []transit.Alert
	routeLoads int
	speedLoads int
	//onSpeedLoad runs after getLatestSpeed read the log, outside the store's lock
	onSpeedLoad func()
}

func makeFakeStore() *fakeStore {
	return &fakeStore{
		vehicles: make(map[string]*transit.Vehicle),
		routes:   make(map[string]*transit.RouteData),
	}
}

func (f *fakeStore) addVehicle(v transit.Vehicle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicles[v.VehicleId] = &v
}

func (f *fakeStore) addRoute(data transit.RouteData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[data.Route.RouteId] = &data
}

func (f *fakeStore) getVehicle(_ context.Context, vehicleId string) (*transit.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, present := f.vehicles[vehicleId]
	if !present {
		return nil, sql.ErrNoRows
	}
	vehicle := *v
	return &vehicle, nil
}

func (f *fakeStore) getVehicles(_ context.Context) ([]transit.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []transit.Vehicle
	for _, v := range f.vehicles {
		results = append(results, *v)
	}
	return results, nil
}

func (f *fakeStore) getRouteData(_ context.Context, routeId string) (*transit.RouteData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routeLoads++
	data, present := f.routes[routeId]
	if !present {
		return nil, sql.ErrNoRows
	}
	return data, nil
}

func (f *fakeStore) getLatestSpeed(_ context.Context, vehicleId string) (*float64, error) {
	f.mu.Lock()
	f.speedLoads++
	var speed *float64
	for i := len(f.logEntries) - 1; i >= 0; i-- {
		if f.logEntries[i].VehicleId == vehicleId {
			speed = f.logEntries[i].SpeedKmh
			break
		}
	}
	onSpeedLoad := f.onSpeedLoad
	f.mu.Unlock()
	if onSpeedLoad != nil {
		onSpeedLoad()
	}
	return speed, nil
}

func (f *fakeStore) getAlerts(_ context.Context, vehicleId string, onlyOpen bool) ([]transit.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]transit.Alert, 0)
	for _, a := range f.alerts {
		if a.VehicleId == vehicleId && (!onlyOpen || !a.IsResolved) {
			results = append(results, a)
		}
	}
	return results, nil
}

func (f *fakeStore) recordVehiclePosition(_ context.Context, entry *transit.LocationLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, present := f.vehicles[entry.VehicleId]
	if !present {
		return sql.ErrNoRows
	}
	lat, lon, at := entry.Latitude, entry.Longitude, entry.LoggedAt
	v.Latitude = &lat
	v.Longitude = &lon
	v.SpeedKmh = entry.SpeedKmh
	v.ReportedAt = &at
	entry.Id = int64(len(f.logEntries) + 1)
	f.logEntries = append(f.logEntries, *entry)
	return nil
}

func (f *fakeStore) openAlert(_ context.Context,
	vehicleId string,
	alertType string,
	message string,
	at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		a := &f.alerts[i]
		if a.VehicleId == vehicleId && a.AlertType == alertType && !a.IsResolved {
			a.Message = message
			a.UpdatedAt = at
			return false, nil
		}
	}
	f.alerts = append(f.alerts, transit.Alert{
		Id:        int64(len(f.alerts) + 1),
		VehicleId: vehicleId,
		AlertType: alertType,
		Message:   message,
		CreatedAt: at,
		UpdatedAt: at,
	})
	return true, nil
}

func (f *fakeStore) resolveAlerts(_ context.Context, vehicleId string, alertType string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var resolved int64
	for i := range f.alerts {
		a := &f.alerts[i]
		if a.VehicleId == vehicleId && a.AlertType == alertType && !a.IsResolved {
			resolvedAt := at
			a.IsResolved = true
			a.ResolvedAt = &resolvedAt
			a.UpdatedAt = at
			resolved++
		}
	}
	return resolved, nil
}

//recordingPublisher keeps every published update
type recordingPublisher struct {
	mu      sync.Mutex
	updates []transit.LocationUpdate
}

func (r *recordingPublisher) publish(update transit.LocationUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

//equatorRouteData is route R1 with n stops along the equator, 0.01 degrees (about 1.1 km) apart
func equatorRouteData(n int, withSegments bool) transit.RouteData {
	data := transit.RouteData{Route: transit.Route{RouteId: "R1", RouteName: "Equator Line"}}
	for i := 0; i < n; i++ {
		data.Stops = append(data.Stops, transit.RouteStopDetail{
			RouteStop: transit.RouteStop{RouteId: "R1", StopId: stopId(i), StopOrder: i + 1},
			StopName:  "Stop " + stopId(i),
			Latitude:  0,
			Longitude: float64(i) * 0.01,
		})
	}
	if withSegments {
		for i := 0; i+1 < n; i++ {
			data.Segments = append(data.Segments, transit.RouteSegmentDetail{
				RouteSegment: transit.RouteSegment{
					Id:                     int64(i + 1),
					RouteId:                "R1",
					FromStopId:             stopId(i),
					ToStopId:               stopId(i + 1),
					SegmentOrder:           i + 1,
					DistanceMeters:         1112,
					TypicalDurationSeconds: 133,
					Polyline: transit.PolylinePoints{
						{0, float64(i) * 0.01},
						{0, float64(i)*0.01 + 0.005},
						{0, float64(i+1) * 0.01},
					},
				},
				FromStopOrder: i + 1,
				ToStopOrder:   i + 2,
			})
		}
	}
	return data
}

func stopId(i int) string {
	return string(rune('A' + i))
}

//testServices wires the tracker components on a fakeStore
type testServices struct {
	logWriter *testLogWriter
	store     *fakeStore
	publisher *recordingPublisher
	routes    *routeCache
	speeds    *speedCache
	processor *reportProcessor
	estimates *estimates
	hub       *wsHub
}

func makeTestServices(store *fakeStore) *testServices {
	logWriter := makeTestLogWriter()
	publisher := &recordingPublisher{}
	estimator := eta.DefaultEstimator()
	routes := makeRouteCache(store, 10, time.Minute)
	speeds := makeSpeedCache(store, 10, time.Minute)
	return &testServices{
		logWriter: logWriter,
		store:     store,
		publisher: publisher,
		routes:    routes,
		speeds:    speeds,
		processor: makeReportProcessor(logWriter.log, store, routes, speeds, publisher, estimator),
		estimates: &estimates{store: store, routes: routes, speeds: speeds, estimator: estimator},
		hub:       makeWsHub(logWriter.log),
	}
}

//makeTrackedStore has route R1 with four stops, vehicle V1 "BUS-1" on R1 and the unassigned vehicle V2 "BUS-2"
func makeTrackedStore(withSegments bool) *fakeStore {
	store := makeFakeStore()
	store.addRoute(equatorRouteData(4, withSegments))
	store.addVehicle(transit.Vehicle{VehicleId: "V1", Label: "BUS-1", RouteId: strPtr("R1")})
	store.addVehicle(transit.Vehicle{VehicleId: "V2", Label: "BUS-2"})
	return store
}
