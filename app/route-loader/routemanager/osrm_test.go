package routemanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/OpenTransitTools/bustracker/foundation/httpclient"
	"github.com/matryer/is"
	"github.com/twpayne/go-polyline"
)

var (
	testFrom = eta.Coordinate{Lat: 45.524159, Lon: -122.676411}
	testTo   = eta.Coordinate{Lat: 45.522879, Lon: -122.677388}
)

func testLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

// osrmTestServer answers every route request with body and status, recording the url of the last request
func osrmTestServer(t *testing.T, status int, body string) (*httptest.Server, *url.URL) {
	lastRequest := &url.URL{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*lastRequest = *r.URL
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, lastRequest
}

func TestOSRMClient_fetchRoad(t *testing.T) {
	is := is.New(t)
	coords := [][]float64{
		{45.52416, -122.67641},
		{45.52350, -122.67690},
		{45.52288, -122.67739},
	}
	encoded := string(polyline.EncodeCoords(coords))
	body := fmt.Sprintf(`{"code":"Ok","routes":[{"distance":164.2,"duration":31.7,"geometry":%q}]}`, encoded)
	server, requestUrl := osrmTestServer(t, http.StatusOK, body)

	client := makeOSRMClient(testLogger(), httpclient.New(time.Second), server.URL+"/")
	road, err := client.fetchRoad(context.Background(), testFrom, testTo)
	is.NoErr(err)
	is.Equal(road.distanceMeters, 164.2)
	is.Equal(road.durationSeconds, 31.7)
	is.Equal(len(road.polyline), 3)
	for i, point := range road.polyline {
		if math.Abs(point[0]-coords[i][0]) > 1e-5 || math.Abs(point[1]-coords[i][1]) > 1e-5 {
			t.Errorf("point %d = %v, want %v", i, point, coords[i])
		}
	}

	is.Equal(requestUrl.Path, "/route/v1/driving/-122.676411,45.524159;-122.677388,45.522879")
	is.Equal(requestUrl.Query().Get("overview"), "full")
	is.Equal(requestUrl.Query().Get("geometries"), "polyline")
}

func TestOSRMClient_fetchRoad_failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "no route found",
			status:  http.StatusBadRequest,
			body:    `{"code":"NoRoute","message":"Impossible route between points"}`,
			wantMsg: "unexpected status 400",
		},
		{
			name:    "code not ok",
			status:  http.StatusOK,
			body:    `{"code":"NoSegment","message":"Could not find a matching segment"}`,
			wantMsg: "NoSegment",
		},
		{
			name:    "empty routes",
			status:  http.StatusOK,
			body:    `{"code":"Ok","routes":[]}`,
			wantMsg: "no routes",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html></html>`,
			wantMsg: "unable to decode json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := osrmTestServer(t, tt.status, tt.body)
			client := makeOSRMClient(testLogger(), httpclient.New(time.Second), server.URL)
			road, err := client.fetchRoad(context.Background(), testFrom, testTo)
			if err == nil {
				t.Fatalf("expected error, got road %v", road)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestOSRMClient_fetchRoad_statusError(t *testing.T) {
	is := is.New(t)
	server, _ := osrmTestServer(t, http.StatusTooManyRequests, "slow down")
	client := makeOSRMClient(testLogger(), httpclient.New(time.Second), server.URL)
	_, err := client.fetchRoad(context.Background(), testFrom, testTo)
	var statusErr *httpclient.StatusError
	is.True(errors.As(err, &statusErr))
	is.Equal(statusErr.StatusCode, http.StatusTooManyRequests)
}

func TestOSRMClient_isPublicServer(t *testing.T) {
	is := is.New(t)
	is.True(makeOSRMClient(testLogger(), nil, "http://router.project-osrm.org/").isPublicServer())
	is.True(!makeOSRMClient(testLogger(), nil, "http://localhost:5000").isPublicServer())
}
