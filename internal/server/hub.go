package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/drcorrector/answer-audio/internal/playback"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	// Single-user service served from the same origin as its UI
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Message types pushed to event subscribers
const (
	MsgProgress  = "progress"
	MsgGenerated = "generation_complete"
	MsgFailed    = "generation_failed"
	MsgPlayback  = "playback"
	MsgUtterance = "utterance"
	MsgSettings  = "settings"
)

// Message is one event pushed over the websocket
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type progressData struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

type utteranceData struct {
	SegmentID string `json:"segment_id"`
	Text      string `json:"text"`
}

type errorData struct {
	Error     string `json:"error"`
	SegmentID string `json:"segment_id,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans events out to every connected websocket client
type Hub struct {
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// Broadcast queues msg for every client. Clients that cannot keep up are
// disconnected.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Str("type", msg.Type).Msg("Event client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// Utter asks clients to speak text with their local speech engine
func (h *Hub) Utter(ctx context.Context, segmentID, text string) {
	h.Broadcast(Message{Type: MsgUtterance, Data: utteranceData{SegmentID: segmentID, Text: text}})
}

// ForwardPlayback publishes playback snapshots until snaps is closed
func (h *Hub) ForwardPlayback(snaps <-chan playback.Snapshot) {
	for snap := range snaps {
		h.Broadcast(Message{Type: MsgPlayback, Data: snap})
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events to it. initial is sent
// before any broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial ...Message) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	for _, msg := range initial {
		c.send <- msg
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Event client connected")

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// readPump discards client input and notices disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Msg("WebSocket write failed")
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
