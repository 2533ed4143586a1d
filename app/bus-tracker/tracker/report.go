package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/go-playground/validator/v10"
)

//errInvalidReport wraps every validation failure of a LocationReport
var errInvalidReport = errors.New("invalid location report")

//LocationReport is the payload a vehicle sends with its position
type LocationReport struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Speed     *float64 `json:"speed" validate:"omitempty,gte=0"`
}

//locationPublisher receives every saved location update
type locationPublisher interface {
	publish(update transit.LocationUpdate)
}

//reportProcessor saves location reports and reacts to them, reports of one vehicle are processed one at a time
type reportProcessor struct {
	log       *log.Logger
	store     trackerStore
	routes    *routeCache
	speeds    *speedCache
	publisher locationPublisher
	estimator eta.Estimator
	validate  *validator.Validate
	locks     *vehicleLocks
	now       func() time.Time
}

func makeReportProcessor(log *log.Logger,
	store trackerStore,
	routes *routeCache,
	speeds *speedCache,
	publisher locationPublisher,
	estimator eta.Estimator) *reportProcessor {
	return &reportProcessor{
		log:       log,
		store:     store,
		routes:    routes,
		speeds:    speeds,
		publisher: publisher,
		estimator: estimator,
		validate:  validator.New(),
		locks:     makeVehicleLocks(),
		now:       time.Now,
	}
}

//process saves report as the current position of vehicleId and appends it to the location log,
//then reconciles the vehicle's off route alert and publishes the resulting update.
//Alert and publish failures are logged, they do not fail the report.
//Returns sql.ErrNoRows when the vehicle does not exist
func (p *reportProcessor) process(ctx context.Context,
	vehicleId string,
	report LocationReport) (*transit.LocationUpdate, error) {
	if err := p.validate.Struct(report); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidReport, err)
	}
	update, err := p.record(ctx, vehicleId, report)
	if err != nil {
		return nil, err
	}
	if p.publisher != nil {
		p.publisher.publish(*update)
	}
	return update, nil
}

//record does the part of process that must not interleave with other reports of vehicleId,
//publishing happens after the vehicle's lock is released
func (p *reportProcessor) record(ctx context.Context,
	vehicleId string,
	report LocationReport) (*transit.LocationUpdate, error) {
	unlock := p.locks.lock(vehicleId)
	defer unlock()

	vehicle, err := p.store.getVehicle(ctx, vehicleId)
	if err != nil {
		return nil, err
	}

	now := p.now()
	entry := transit.LocationLogEntry{
		VehicleId: vehicleId,
		Latitude:  *report.Latitude,
		Longitude: *report.Longitude,
		SpeedKmh:  report.Speed,
		LoggedAt:  now,
	}
	if err = p.store.recordVehiclePosition(ctx, &entry); err != nil {
		return nil, err
	}
	p.speeds.forget(vehicleId)

	position := eta.Coordinate{Lat: entry.Latitude, Lon: entry.Longitude}
	return &transit.LocationUpdate{
		VehicleId: vehicle.VehicleId,
		Label:     vehicle.Label,
		RouteId:   vehicle.RouteId,
		Latitude:  entry.Latitude,
		Longitude: entry.Longitude,
		SpeedKmh:  entry.SpeedKmh,
		Timestamp: now,
		OffRoute:  p.reconcileOffRoute(ctx, vehicle, position, now),
	}, nil
}

//reconcileOffRoute opens or refreshes the OFF_ROUTE alert of vehicle while it is far from every stop of
//its route and resolves it once the vehicle is back. Returns true while the vehicle is off route
func (p *reportProcessor) reconcileOffRoute(ctx context.Context,
	vehicle *transit.Vehicle,
	position eta.Coordinate,
	now time.Time) bool {
	if vehicle.RouteId == nil {
		return false
	}
	route, err := p.routes.get(ctx, *vehicle.RouteId)
	if err != nil {
		p.log.Printf("error loading route %s to check vehicle %s off route, error:%v",
			*vehicle.RouteId, vehicle.VehicleId, err)
		return false
	}
	decision := eta.EvaluateOffRoute(position, route.Stops, p.estimator.OffRouteThresholdKm)
	if !decision.Evaluated {
		return false
	}

	if decision.ShouldAlert {
		message := fmt.Sprintf("Bus %s is off route. Last seen %.2f km away.", vehicle.Label, decision.MinDistanceKm)
		created, err := p.store.openAlert(ctx, vehicle.VehicleId, transit.AlertTypeOffRoute, message, now)
		if err != nil {
			p.log.Printf("error opening off route alert for vehicle %s, error:%v", vehicle.VehicleId, err)
		} else if created {
			p.log.Printf("vehicle %s is off route, %.2f km from stop %s", vehicle.VehicleId,
				decision.MinDistanceKm, decision.NearestStop.ID)
		}
		return true
	}

	resolved, err := p.store.resolveAlerts(ctx, vehicle.VehicleId, transit.AlertTypeOffRoute, now)
	if err != nil {
		p.log.Printf("error resolving off route alerts for vehicle %s, error:%v", vehicle.VehicleId, err)
	} else if resolved > 0 {
		p.log.Printf("vehicle %s is back on route, resolved %d alerts", vehicle.VehicleId, resolved)
	}
	return false
}

//vehicleLocks hands out one mutex per vehicle
type vehicleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func makeVehicleLocks() *vehicleLocks {
	return &vehicleLocks{locks: make(map[string]*sync.Mutex)}
}

//lock blocks until vehicleId is free and returns the function releasing it
func (v *vehicleLocks) lock(vehicleId string) func() {
	v.mu.Lock()
	l, present := v.locks[vehicleId]
	if !present {
		l = &sync.Mutex{}
		v.locks[vehicleId] = l
	}
	v.mu.Unlock()
	l.Lock()
	return l.Unlock
}
