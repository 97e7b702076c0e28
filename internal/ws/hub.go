// Package ws provides a WebSocket hub that pushes zone state changes to
// connected automation clients. Clients can subscribe to a subset of event
// types; by default they receive everything.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/circadiand/internal/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (clients only send pings/pongs).
	maxMessageSize = 512

	// Size of the per-client send buffer.
	sendBufferSize = 64
)

// Client represents a single WebSocket connection. A nil filter receives
// every event type.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	filter map[events.EventType]struct{}
}

func (c *Client) wants(t events.EventType) bool {
	if c.filter == nil {
		return true
	}
	_, ok := c.filter[t]
	return ok
}

// Hub manages the active WebSocket clients and fans out zone events.
type Hub struct {
	logger     *slog.Logger
	clients    map[*Client]struct{}
	mu         sync.RWMutex
	broadcast  chan events.Event
	register   chan *Client
	unregister chan *Client
	unsub      func() // unsubscribe from event bus
}

// NewHub creates a Hub and subscribes to the event bus.
func NewHub(logger *slog.Logger, bus *events.Bus) *Hub {
	h := &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan events.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Forward bus events to the broadcast channel without blocking the
	// publisher; a full channel drops the event with a warning.
	h.unsub = bus.Subscribe(func(e events.Event) {
		select {
		case h.broadcast <- e:
		default:
			logger.Warn("ws: broadcast channel full, dropping event", "type", e.Type)
		}
	})

	return h
}

// Run starts the hub's main loop. It blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.unsub()
	h.logger.Info("ws: hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("ws: hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client connected", "clients", count)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected", "clients", count)

		case e := <-h.broadcast:
			msg, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("ws: failed to marshal event", "error", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(e.Type) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					// Client buffer full; schedule disconnect.
					go func(cl *Client) {
						h.unregister <- cl
					}(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// NewClient creates a Client attached to this hub. An empty types slice
// subscribes the client to all event types.
func (h *Hub) NewClient(conn *websocket.Conn, types []events.EventType) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if len(types) > 0 {
		c.filter = make(map[events.EventType]struct{}, len(types))
		for _, t := range types {
			c.filter[t] = struct{}{}
		}
	}
	return c
}

// WritePump pumps messages from the hub to the WebSocket connection.
// A goroutine per client runs this method.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// ReadPump reads messages from the WebSocket connection.
// Clients don't send meaningful data, but we must read to process control
// frames (ping/pong/close).
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
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("ws: read error", "error", err)
			}
			return
		}
		// Discard client messages; this is a server-push-only endpoint.
	}
}
