package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ptrun/internal/runstate"
)

// Notification commands sent to websocket clients
const (
	CommandTestResults = "test-results"
	CommandTestStdout  = "test-stdout"
)

const (
	clientBufferSize = 64
	writeTimeout     = 10 * time.Second
)

// Message is one notification pushed to websocket clients
type Message struct {
	Command string `json:"command"`
	Content any    `json:"content"`
}

// Hub fans run notifications out to every connected websocket client.
// A client that cannot keep up is disconnected.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) TestResults(snap runstate.Snapshot) {
	h.Broadcast(Message{Command: CommandTestResults, Content: snap})
}

func (h *Hub) TestStdout(text string) {
	h.Broadcast(Message{Command: CommandTestStdout, Content: text})
}

// Broadcast queues msg for every client
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal notification", "command", msg.Command, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serve registers conn, sends the initial message and blocks until the
// client goes away. initial is built and queued in the same critical
// section that registers the client, so no broadcast falls in between.
func (h *Hub) serve(conn *websocket.Conn, initial func() Message) {
	c := &client{conn: conn, send: make(chan []byte, clientBufferSize)}

	h.mu.Lock()
	data, err := json.Marshal(initial())
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("failed to marshal initial notification", "error", err)
		conn.Close()
		return
	}
	c.send <- data
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "remote", conn.RemoteAddr())

	go c.writePump()

	// incoming messages are ignored; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
	conn.Close()
	h.logger.Debug("websocket client disconnected", "remote", conn.RemoteAddr())
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
