package streaming

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/missionctl/missionctl/internal/common/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// SubscriptionMessage is sent by clients to narrow or widen the entity kinds
// they receive events for.
type SubscriptionMessage struct {
	Action string   `json:"action"` // subscribe, unsubscribe
	Kinds  []string `json:"kinds"`
}

// Client is one connected dashboard WebSocket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *logger.Logger

	mu    sync.RWMutex
	kinds map[string]bool
	// all is true until the first subscribe message; a fresh client gets
	// everything so dashboards work without any handshake.
	all bool
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}

		var subMsg SubscriptionMessage
		if err := json.Unmarshal(message, &subMsg); err != nil {
			c.logger.Warn("Invalid subscription message", zap.Error(err))
			continue
		}

		switch subMsg.Action {
		case "subscribe":
			c.Subscribe(subMsg.Kinds)
		case "unsubscribe":
			c.Unsubscribe(subMsg.Kinds)
		default:
			c.logger.Warn("Unknown action", zap.String("action", subMsg.Action))
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a message for the client; returns false if its buffer is full.
func (c *Client) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Subscribe narrows the client to the given entity kinds.
func (c *Client) Subscribe(kinds []string) {
	c.mu.Lock()
	c.all = false
	for _, kind := range kinds {
		c.kinds[kind] = true
	}
	c.mu.Unlock()
	c.logger.Debug("Client subscribed", zap.Strings("kinds", kinds))
}

// Unsubscribe removes the given entity kinds from the client's subscription.
func (c *Client) Unsubscribe(kinds []string) {
	c.mu.Lock()
	c.all = false
	for _, kind := range kinds {
		delete(c.kinds, kind)
	}
	c.mu.Unlock()
	c.logger.Debug("Client unsubscribed", zap.Strings("kinds", kinds))
}

// WantsKind reports whether the client should receive events for a kind.
func (c *Client) WantsKind(kind string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.all || c.kinds[kind]
}
