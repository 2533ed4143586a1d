package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//locationReportHandler accepts location reports from vehicles
type locationReportHandler struct {
	log       *log.Logger
	processor *reportProcessor
}

func makeLocationReportHandler(log *log.Logger, processor *reportProcessor) *locationReportHandler {
	return &locationReportHandler{log: log, processor: processor}
}

//ServeHTTP implements locationReportHandler's http.Handler interface
func (h *locationReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vehicleId := mux.Vars(r)["vehicleId"]
	var report LocationReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(h.log, w, http.StatusBadRequest, map[string]string{"error": "Invalid latitude or longitude format."})
		return
	}
	update, err := h.processor.process(r.Context(), vehicleId, report)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"status": "Location updated for bus " + update.Label,
		"update": update,
	})
}

//stopBoardHandler lists the stops of a route with the estimates of an optional vehicle
type stopBoardHandler struct {
	log       *log.Logger
	estimates *estimates
}

func makeStopBoardHandler(log *log.Logger, estimates *estimates) *stopBoardHandler {
	return &stopBoardHandler{log: log, estimates: estimates}
}

//ServeHTTP implements stopBoardHandler's http.Handler interface
func (h *stopBoardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	routeId := mux.Vars(r)["routeId"]
	board, err := h.estimates.stopBoard(r.Context(), routeId, r.FormValue("vehicle_id"))
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, board)
}

//vehicleETAHandler reports the arrival outlook of a vehicle on its route
type vehicleETAHandler struct {
	log       *log.Logger
	estimates *estimates
}

func makeVehicleETAHandler(log *log.Logger, estimates *estimates) *vehicleETAHandler {
	return &vehicleETAHandler{log: log, estimates: estimates}
}

//ServeHTTP implements vehicleETAHandler's http.Handler interface
func (h *vehicleETAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	summary, err := h.estimates.vehicleSummary(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, summary)
}

//vehicleSegmentHandler reports the segment a vehicle is located on
type vehicleSegmentHandler struct {
	log       *log.Logger
	estimates *estimates
}

func makeVehicleSegmentHandler(log *log.Logger, estimates *estimates) *vehicleSegmentHandler {
	return &vehicleSegmentHandler{log: log, estimates: estimates}
}

//ServeHTTP implements vehicleSegmentHandler's http.Handler interface
func (h *vehicleSegmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	position, err := h.estimates.vehicleSegment(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, position)
}

//vehicleAlertsHandler lists the alerts of a vehicle, only open ones with open=true
type vehicleAlertsHandler struct {
	log   *log.Logger
	store trackerStore
}

func makeVehicleAlertsHandler(log *log.Logger, store trackerStore) *vehicleAlertsHandler {
	return &vehicleAlertsHandler{log: log, store: store}
}

//ServeHTTP implements vehicleAlertsHandler's http.Handler interface
func (h *vehicleAlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vehicleId := mux.Vars(r)["vehicleId"]
	if _, err := h.store.getVehicle(r.Context(), vehicleId); err != nil {
		writeError(h.log, w, err)
		return
	}
	onlyOpen := strings.ToLower(r.FormValue("open")) == "true"
	alerts, err := h.store.getAlerts(r.Context(), vehicleId, onlyOpen)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, alerts)
}

//routeGeometryHandler serves the stops and segments of a route as GeoJSON
type routeGeometryHandler struct {
	log    *log.Logger
	routes *routeCache
}

func makeRouteGeometryHandler(log *log.Logger, routes *routeCache) *routeGeometryHandler {
	return &routeGeometryHandler{log: log, routes: routes}
}

//ServeHTTP implements routeGeometryHandler's http.Handler interface
func (h *routeGeometryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, err := h.routes.get(r.Context(), mux.Vars(r)["routeId"])
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	jsonData, err := routeGeometry(route).MarshalJSON()
	if err != nil {
		h.log.Printf("Error marshaling geometry of route %s to json: error:%v\n", route.RouteID, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err = w.Write(jsonData); err != nil {
		h.log.Printf("Error writing geojson response: %s", err)
	}
}

//writeJSON sends value as json with status
func writeJSON(log *log.Logger, w http.ResponseWriter, status int, value interface{}) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		log.Printf("Error marshaling %T to json: error:%v\n", value, err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(jsonData); err != nil {
		log.Printf("Error writing json response: %s", err)
	}
}

//writeError maps err to an http status, missing records are 404 and invalid reports 400
func writeError(log *log.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(log, w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	case errors.Is(err, errInvalidReport):
		writeJSON(log, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("Error serving request, error:%v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
	}
}

//createRouter routes every endpoint of the tracker
func createRouter(log *log.Logger,
	store trackerStore,
	routes *routeCache,
	estimates *estimates,
	processor *reportProcessor,
	hub *wsHub) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/vehicles/{vehicleId}/location", makeLocationReportHandler(log, processor)).
		Methods(http.MethodPost)
	r.Handle("/vehicles/{vehicleId}/eta", makeVehicleETAHandler(log, estimates)).Methods(http.MethodGet)
	r.Handle("/vehicles/{vehicleId}/segment", makeVehicleSegmentHandler(log, estimates)).Methods(http.MethodGet)
	r.Handle("/vehicles/{vehicleId}/alerts", makeVehicleAlertsHandler(log, store)).Methods(http.MethodGet)
	r.Handle("/routes/{routeId}/stops-with-eta", makeStopBoardHandler(log, estimates)).Methods(http.MethodGet)
	r.Handle("/routes/{routeId}/geometry", makeRouteGeometryHandler(log, routes)).Methods(http.MethodGet)
	r.Handle("/ws/locations", hub)
	return r
}

//createServer creates configured http.Server for the tracker's endpoints
func createServer(handler http.Handler, httpPort int, readTimeout time.Duration, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,
		IdleTimeout:  time.Second * 60,
		Handler:      handler,
	}
}

//runWebService starts up the web service, and terminates on shutdown signal
func runWebService(log *log.Logger,
	wg *sync.WaitGroup,
	srv *http.Server,
	hub *wsHub,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	log.Printf("Starting server on %s", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
	hub.closeAll()
}
