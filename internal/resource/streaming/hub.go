// Package streaming fans entity change events out to dashboard WebSocket clients.
package streaming

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/events/bus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub bridges the event bus to WebSocket clients. Each client subscribes to
// entity kinds ("resources", "bookings", ...); events for other kinds are
// not delivered to it.
type Hub struct {
	bus    bus.EventBus
	logger *logger.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	sub     bus.Subscription
}

// NewHub creates a hub; call Start to begin bridging events.
func NewHub(eventBus bus.EventBus, log *logger.Logger) *Hub {
	return &Hub{
		bus:     eventBus,
		logger:  log,
		clients: make(map[*Client]bool),
	}
}

// Start subscribes the hub to all resource manager events.
func (h *Hub) Start() error {
	sub, err := h.bus.Subscribe(bus.SubjectPrefix+".>", func(event *bus.Event) {
		h.broadcast(event)
	})
	if err != nil {
		return err
	}
	h.sub = sub
	return nil
}

// Stop unsubscribes from the bus and disconnects every client.
func (h *Hub) Stop() {
	if h.sub != nil {
		if err := h.sub.Unsubscribe(); err != nil {
			h.logger.Warn("Failed to unsubscribe hub", zap.Error(err))
		}
	}

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// the client. New clients receive events for every kind until they send a
// subscription message narrowing it down.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		kinds:  make(map[string]bool),
		all:    true,
		logger: h.logger,
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	go client.WritePump()
	go client.ReadPump()
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(event *bus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("Failed to marshal event for broadcast", zap.Error(err))
		return
	}

	kind := eventKind(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.WantsKind(kind) {
			continue
		}
		if !client.Send(data) {
			h.logger.Debug("Dropping event for slow client",
				zap.String("type", event.Type))
		}
	}
}

// eventKind extracts the entity kind from an event type "<kind>.<action>".
func eventKind(event *bus.Event) string {
	for i, r := range event.Type {
		if r == '.' {
			return event.Type[:i]
		}
	}
	return event.Type
}
