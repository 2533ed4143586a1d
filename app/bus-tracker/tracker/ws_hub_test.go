package tracker

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/gorilla/websocket"
	"github.com/matryer/is"
)

func dialHub(t *testing.T, hub *wsHub) (*websocket.Conn, func()) {
	server := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("unable to dial hub: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return conn, func() {
		_ = conn.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("unable to read websocket message: %v", err)
	}
	var message wsMessage
	if err = json.Unmarshal(data, &message); err != nil {
		t.Fatalf("unable to decode websocket message %s: %v", data, err)
	}
	return message
}

func TestWsHub_broadcastsUpdates(t *testing.T) {
	is := is.New(t)
	hub := makeWsHub(makeTestLogWriter().log)
	conn, closeFunc := dialHub(t, hub)
	defer closeFunc()
	is.Equal(hub.clientCount(), 1)

	hub.publish(transit.LocationUpdate{VehicleId: "V1", Label: "BUS-1", Latitude: 1.5, Longitude: 2.5})

	message := readMessage(t, conn)
	is.Equal(message.Type, "bus_location_update")
	is.Equal(message.Data.VehicleId, "V1")
	is.Equal(message.Data.Longitude, 2.5)
}

func TestWsHub_subscribeNarrowsUpdates(t *testing.T) {
	is := is.New(t)
	hub := makeWsHub(makeTestLogWriter().log)
	conn, closeFunc := dialHub(t, hub)
	defer closeFunc()

	is.NoErr(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe_bus","bus_id":"V2"}`)))
	confirmation := readMessage(t, conn)
	is.Equal(confirmation.Type, "subscription_confirmed")
	is.Equal(confirmation.VehicleId, "V2")

	hub.publish(transit.LocationUpdate{VehicleId: "V1"})
	hub.publish(transit.LocationUpdate{VehicleId: "V2"})

	message := readMessage(t, conn)
	is.Equal(message.Data.VehicleId, "V2")
}

func TestWsHub_answers(t *testing.T) {
	tests := []struct {
		name        string
		request     string
		wantType    string
		wantMessage string
	}{
		{
			name:     "heartbeat",
			request:  `{"type":"heartbeat"}`,
			wantType: "heartbeat_ack",
		},
		{
			name:        "unknown type",
			request:     `{"type":"dance"}`,
			wantType:    "error",
			wantMessage: "Unknown message type: dance",
		},
		{
			name:        "not json",
			request:     `hello`,
			wantType:    "error",
			wantMessage: "Invalid JSON",
		},
		{
			name:        "subscribe without vehicle",
			request:     `{"type":"subscribe_bus"}`,
			wantType:    "error",
			wantMessage: "bus_id is required",
		},
	}
	hub := makeWsHub(makeTestLogWriter().log)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &wsClient{vehicles: make(map[string]struct{})}
			got := hub.answer(client, []byte(tt.request))
			if got.Type != tt.wantType || got.Message != tt.wantMessage {
				t.Errorf("answer() = %+v, want type %s message %q", got, tt.wantType, tt.wantMessage)
			}
		})
	}
}

func TestWsHub_dropsClosedClients(t *testing.T) {
	is := is.New(t)
	hub := makeWsHub(makeTestLogWriter().log)
	conn, closeFunc := dialHub(t, hub)
	defer closeFunc()
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	is.Equal(hub.clientCount(), 0)
}

func TestWsHub_idleClientDoesNotHoldUpReports(t *testing.T) {
	is := is.New(t)
	store := makeTrackedStore(false)
	services := makeTestServices(store)
	hub := services.hub
	p := makeReportProcessor(services.logWriter.log, store, services.routes, services.speeds, hub,
		services.estimates.estimator)

	// connected but never reads
	_, closeFunc := dialHub(t, hub)
	defer closeFunc()
	is.Equal(hub.clientCount(), 1)

	for i := 0; i < 500; i++ {
		start := time.Now()
		_, err := p.process(context.Background(), "V1", report(0, 0.002, nil))
		is.NoErr(err)
		if took := time.Since(start); took > time.Second {
			t.Fatalf("report %d took %s while a websocket client was not reading", i, took)
		}
	}
}

func TestWsHub_dropsClientWithFullQueue(t *testing.T) {
	is := is.New(t)
	hub := makeWsHub(makeTestLogWriter().log)
	conn, closeFunc := dialHub(t, hub)
	defer closeFunc()

	// registered without a writePump so nothing drains its queue
	stuck := newWsClient(conn)
	hub.add(stuck)

	for i := 0; i < wsSendBuffer; i++ {
		hub.publish(transit.LocationUpdate{VehicleId: "V1"})
	}
	select {
	case <-stuck.done:
		t.Fatal("client dropped before its queue was full")
	default:
	}

	hub.publish(transit.LocationUpdate{VehicleId: "V1"})
	select {
	case <-stuck.done:
	default:
		t.Fatal("client with a full queue was not dropped")
	}
	hub.mu.Lock()
	_, present := hub.clients[stuck]
	hub.mu.Unlock()
	is.True(!present)
}
