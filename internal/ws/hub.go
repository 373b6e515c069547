// Package ws streams emitted cues to browser clients over WebSocket so the
// transcript log updates without polling.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// historyLimit bounds the per-session cue history replayed to late
	// subscribers.
	historyLimit = 256
	// sendSlack is extra send-buffer room beyond the history replay.
	sendSlack = 32

	writeWait = 5 * time.Second
	readWait  = 60 * time.Second
)

// client is one subscribed connection. Writes go through the buffered send
// channel and a dedicated write goroutine, so a stalled peer never blocks
// the goroutine calling Broadcast.
type client struct {
	conn *websocket.Conn
	send chan any
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan any, historyLimit+sendSlack),
		done: make(chan struct{}),
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(payload); err != nil {
				c.stop()
				return
			}
		}
	}
}

// Hub fans emitted cues out to the WebSocket clients subscribed to each
// session and keeps a bounded cue history per session so a client connecting
// mid-stream still sees the transcript so far.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	sessions map[string]map[*client]struct{}
	history  map[string][]any
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024 * 4,
		},
		sessions: make(map[string]map[*client]struct{}),
		history:  make(map[string][]any),
	}
}

// Handle upgrades the connection and subscribes it to the session named in
// the path. The read loop exists only to detect disconnects and answer pings.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}

	c := newClient(conn)
	h.subscribe(sessionID, c)
	defer h.unsubscribe(sessionID, c)
	go c.writeLoop()

	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
	}
}

// Broadcast records payload in the session's history and enqueues it to every
// subscriber. Enqueueing never blocks: a client whose send buffer is full is
// dropped, so one stalled peer cannot hold up the caller.
func (h *Hub) Broadcast(sessionID string, payload any) {
	h.mu.Lock()
	hist := append(h.history[sessionID], payload)
	if len(hist) > historyLimit {
		hist = hist[len(hist)-historyLimit:]
	}
	h.history[sessionID] = hist

	var stalled []*client
	for c := range h.sessions[sessionID] {
		select {
		case c.send <- payload:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(h.sessions[sessionID], c)
	}
	h.mu.Unlock()

	for _, c := range stalled {
		log.Warn().Str("session", sessionID).Msg("dropping stalled ws client")
		c.stop()
	}
}

// CloseSession disconnects all clients of a stopped session and releases its
// cue history.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	clients := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	delete(h.history, sessionID)
	h.mu.Unlock()
	for c := range clients {
		c.stop()
	}
}

// subscribe replays the session's cue history into the client's send buffer
// and then registers it, so the transcript arrives in order with no gap
// before live cues. The buffer always has room for a full replay.
func (h *Hub) subscribe(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, payload := range h.history[sessionID] {
		c.send <- payload
	}
	m := h.sessions[sessionID]
	if m == nil {
		m = make(map[*client]struct{})
		h.sessions[sessionID] = m
	}
	m[c] = struct{}{}
}

func (h *Hub) unsubscribe(sessionID string, c *client) {
	h.mu.Lock()
	if m := h.sessions[sessionID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.mu.Unlock()
	c.stop()
}
