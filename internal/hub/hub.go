// Package hub fans wire messages out to every connected development client.
package hub

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/logging"
	"github.com/favac/no-framework-starter/protocol"
)

// upgrader accepts any origin: the channel is a development-only, insecure
// local transport.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of live client connections. Clients may connect and
// disconnect at any time, including while a broadcast is in progress; a
// failed send removes only the failing client.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	logger  *logrus.Entry
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logging.NewLogger("hub"),
	}
}

// Handler returns the HTTP handler that upgrades requests to WebSocket
// connections and registers them with the hub.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.WithError(err).Error("Failed to upgrade connection")
			return
		}

		c := &client{
			conn: conn,
			send: make(chan []byte, 64),
			done: make(chan struct{}),
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.clients[c] = struct{}{}
		count := len(h.clients)
		h.mu.Unlock()

		h.logger.WithField("clients", count).Info("Client connected")

		go h.writePump(c)
		go h.readPump(c)
	}
}

// Broadcast serializes the message and queues it for every currently
// connected client. Per-client send order matches broadcast order; clients
// that have disconnected are skipped silently.
func (h *Hub) Broadcast(msg protocol.Message) {
	data, err := msg.Encode()
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode message")
		return
	}

	// Snapshot the set under the lock, send outside it, so connect and
	// disconnect callbacks never contend with a broadcast in flight.
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		select {
		case <-c.done:
			// Disconnected between snapshot and send; skip silently.
		default:
			select {
			case c.send <- data:
			default:
				// The client's queue is full: it is too slow to keep up.
				// Drop it rather than stall the broadcast for everyone else.
				h.logger.Warn("Client send queue full, dropping connection")
				h.remove(c)
			}
		}
	}

	h.logger.WithFields(logrus.Fields{
		"type":    msg.Type,
		"clients": len(targets),
	}).Debug("Broadcast sent")
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and stops accepting new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range targets {
		c.shutdown()
	}
}

// writePump drains a client's queue onto its connection. A write error
// removes the client; other clients are unaffected.
func (h *Hub) writePump(c *client) {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.WithError(err).Debug("Write failed, removing client")
				h.remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards inbound frames; the protocol is push-only. Its real job
// is detecting the close handshake or a dropped connection.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			h.logger.Info("Client disconnected")
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if present {
		c.shutdown()
	}
}

func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
