package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handtimer/internal/timer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = 2 * time.Second

// EventMessage is the JSON sent to WebSocket clients for each timer transition.
type EventMessage struct {
	Type     string  `json:"type"`
	Session  string  `json:"session,omitempty"`
	Hand     string  `json:"hand"`
	At       float64 `json:"at"`
	Start    float64 `json:"start,omitempty"`
	End      float64 `json:"end,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// NewEventMessage converts a timer event to its wire form.
func NewEventMessage(ev timer.Event, session string) EventMessage {
	msg := EventMessage{
		Type:    string(ev.Kind),
		Session: session,
		Hand:    ev.Hand,
		At:      unixSeconds(ev.At),
	}
	if ev.Record != nil {
		msg.Start = unixSeconds(ev.Record.Start)
		msg.End = unixSeconds(ev.Record.End)
		msg.Duration = ev.Record.Seconds()
	}
	return msg
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// sendBuffer is the number of messages queued per client before it is
// considered stalled and dropped.
const sendBuffer = 16

// client is one WebSocket connection with its outgoing queue. A dedicated
// goroutine drains send so Publish never waits on the network.
type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

func (c *client) writePump() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// Unblocks the read loop, which unregisters the client.
			c.conn.Close()
			return
		}
	}
}

// Hub broadcasts timer events to WebSocket clients.
type Hub struct {
	session string
	logger  *slog.Logger
	clients map[*client]struct{}
	mu      sync.Mutex
}

// NewHub creates a Hub tagging messages with session.
func NewHub(session string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		session: session,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		send:   make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	defer h.remove(c)

	go c.writePump()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// remove unregisters c and stops its writer. It is safe to call more than once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Publish queues ev for every connected client without blocking. A client
// whose queue is full is dropped.
func (h *Hub) Publish(ev timer.Event) {
	msg, err := json.Marshal(NewEventMessage(ev, h.session))
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping stalled websocket client", "remote", c.remote)
			delete(h.clients, c)
			close(c.send)
			if c.conn != nil {
				c.conn.Close()
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		c.conn.Close()
	}
}
