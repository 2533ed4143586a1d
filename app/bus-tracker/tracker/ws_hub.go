package tracker

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

//wsSendBuffer is how many messages may wait for a client before it is dropped as too slow
const wsSendBuffer = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

//wsMessage is the envelope of every message sent to and received from websocket clients
type wsMessage struct {
	Type      string                  `json:"type"`
	Data      *transit.LocationUpdate `json:"data,omitempty"`
	VehicleId string                  `json:"bus_id,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

//wsClient is one websocket connection. A client receives every update until it subscribes to
//specific vehicles. Messages are queued on send and written by the client's writePump only
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	vehicles  map[string]struct{}
}

func newWsClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:     conn,
		send:     make(chan []byte, wsSendBuffer),
		done:     make(chan struct{}),
		vehicles: make(map[string]struct{}),
	}
}

//enqueue queues data without blocking, returns false when the client is closed or its queue is full
func (c *wsClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) enqueueJSON(message wsMessage) bool {
	data, err := json.Marshal(message)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

//close ends the client's pumps and connection, safe to call more than once
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) subscribe(vehicleId string) {
	c.mu.Lock()
	c.vehicles[vehicleId] = struct{}{}
	c.mu.Unlock()
}

func (c *wsClient) wants(vehicleId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.vehicles) == 0 {
		return true
	}
	_, present := c.vehicles[vehicleId]
	return present
}

//wsHub fans location updates out to connected websocket clients
type wsHub struct {
	log     *log.Logger
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func makeWsHub(log *log.Logger) *wsHub {
	return &wsHub{
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

//ServeHTTP upgrades the request to a websocket connection and registers it with the hub
func (h *wsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("websocket upgrade error: %v", err)
		return
	}
	client := newWsClient(conn)
	h.add(client)
	go h.writePump(client)
	go h.readPump(client)
}

func (h *wsHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

//drop removes c from the hub and closes it
func (h *wsHub) drop(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *wsHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

//publish implements locationPublisher by queueing update for every interested client, it never waits on a client
func (h *wsHub) publish(update transit.LocationUpdate) {
	data, err := json.Marshal(wsMessage{Type: "bus_location_update", Data: &update})
	if err != nil {
		h.log.Printf("failed to marshal websocket message for %s, error:%v", update, err)
		return
	}
	h.broadcast(update.VehicleId, data)
}

func (h *wsHub) broadcast(vehicleId string, data []byte) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.wants(vehicleId) {
			continue
		}
		if !c.enqueue(data) {
			h.log.Printf("dropping websocket client %s, send queue full", c.conn.RemoteAddr())
			h.drop(c)
		}
	}
}

//writePump writes queued messages to the connection until the client is closed or a write fails
func (h *wsHub) writePump(c *wsClient) {
	defer h.drop(c)
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

//readPump answers client requests until the connection fails
func (h *wsHub) readPump(c *wsClient) {
	defer h.drop(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.enqueueJSON(h.answer(c, data)) {
			return
		}
	}
}

//answer handles one client request, "subscribe_bus" narrows the updates sent to the client
func (h *wsHub) answer(c *wsClient, data []byte) wsMessage {
	var request wsMessage
	if err := json.Unmarshal(data, &request); err != nil {
		return wsMessage{Type: "error", Message: "Invalid JSON"}
	}
	switch request.Type {
	case "subscribe_bus":
		if request.VehicleId == "" {
			return wsMessage{Type: "error", Message: "bus_id is required"}
		}
		c.subscribe(request.VehicleId)
		return wsMessage{Type: "subscription_confirmed", VehicleId: request.VehicleId}
	case "heartbeat":
		return wsMessage{Type: "heartbeat_ack"}
	default:
		return wsMessage{Type: "error", Message: "Unknown message type: " + request.Type}
	}
}

//closeAll disconnects every client
func (h *wsHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
