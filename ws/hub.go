// file: ws/hub.go

// Package ws pushes device change events to connected frontends.
package ws

import (
	"device-management-api/logger"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sendBufferSize is the per-client outbound message buffer. A client that
// falls this far behind is disconnected rather than allowed to block the
// broadcaster.
const sendBufferSize = 64

const writeTimeout = 10 * time.Second

// Event is the message pushed to every connected client.
type Event struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Hub manages WebSocket connections and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by the frontend CORS configuration.
		return true
	},
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Log.WithField("clients", h.ClientCount()).Debug("WebSocket client connected")
}

// unregister removes a client. Only the goroutine that actually removes the
// client from the map closes the send channel, preventing a double close.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client. Clients whose send
// buffer is full are skipped; the broadcaster never blocks on a slow reader.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to marshal broadcast event")
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(data)
	}
}

// trySend attempts to queue data for the client. It absorbs the
// send-on-closed-channel panic that occurs when the client unregisters
// between the broadcast snapshot and the send, and skips clients whose
// buffer is full.
func (c *client) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // client disconnected during broadcast
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// ServeWS upgrades the connection and registers the client with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(c)

	go c.writePump()
	go h.readPump(c)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains inbound frames so close/ping handling works, and
// unregisters the client when the connection drops.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
