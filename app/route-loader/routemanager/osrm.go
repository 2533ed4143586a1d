package routemanager

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/OpenTransitTools/bustracker/business/eta"
	"github.com/OpenTransitTools/bustracker/foundation/httpclient"
	"github.com/twpayne/go-polyline"
)

// PublicOSRMServer is the demo server run by the OSRM project, it asks clients to limit their request rate
const PublicOSRMServer = "http://router.project-osrm.org"

// road is the driving path between two stops
type road struct {
	distanceMeters  float64
	durationSeconds float64
	polyline        transit.PolylinePoints
}

// osrmResponse holds the fields used from an OSRM route service response
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// osrmClient retrieves driving routes from an OSRM server
type osrmClient struct {
	log     *log.Logger
	client  *http.Client
	baseUrl string
}

func makeOSRMClient(log *log.Logger, client *http.Client, baseUrl string) *osrmClient {
	return &osrmClient{
		log:     log,
		client:  client,
		baseUrl: strings.TrimRight(baseUrl, "/"),
	}
}

// isPublicServer reports whether requests go to the rate limited public server
func (o *osrmClient) isPublicServer() bool {
	return o.baseUrl == PublicOSRMServer
}

// routeUrl builds the route service request for driving from one coordinate to another, OSRM takes longitude first
func (o *osrmClient) routeUrl(from eta.Coordinate, to eta.Coordinate) string {
	return fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=polyline",
		o.baseUrl, from.Lon, from.Lat, to.Lon, to.Lat)
}

// fetchRoad retrieves the first route OSRM suggests between from and to
func (o *osrmClient) fetchRoad(ctx context.Context, from eta.Coordinate, to eta.Coordinate) (*road, error) {
	var response osrmResponse
	err := httpclient.GetJSON(ctx, o.log, o.client, o.routeUrl(from, to), &response)
	if err != nil {
		return nil, err
	}
	if response.Code != "Ok" {
		return nil, fmt.Errorf("osrm returned code %q: %s", response.Code, response.Message)
	}
	if len(response.Routes) == 0 {
		return nil, fmt.Errorf("osrm returned no routes")
	}
	first := response.Routes[0]
	points, err := decodePolyline(first.Geometry)
	if err != nil {
		return nil, err
	}
	return &road{
		distanceMeters:  first.Distance,
		durationSeconds: first.Duration,
		polyline:        points,
	}, nil
}

// decodePolyline decodes an encoded polyline with precision 5 into [lat, lon] points
func decodePolyline(encoded string) (transit.PolylinePoints, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("unable to decode osrm geometry: %w", err)
	}
	points := make(transit.PolylinePoints, 0, len(coords))
	for _, coord := range coords {
		points = append(points, [2]float64{coord[0], coord[1]})
	}
	return points, nil
}
