// Package feed streams session events to websocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/medilink-console/internal/session"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts JSON events to every connected websocket.
type Hub struct {
	mu       sync.Mutex
	conns    map[uuid.UUID]*websocket.Conn
	closed   bool
	snapshot func() any
	logger   *slog.Logger
}

// NewHub creates a hub. snapshot, if set, produces the first message every
// new connection receives.
func NewHub(snapshot func() any, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:    make(map[uuid.UUID]*websocket.Conn),
		snapshot: snapshot,
		logger:   logger,
	}
}

// Run forwards events to subscribers until ctx is done or events is closed,
// then disconnects everyone.
func (h *Hub) Run(ctx context.Context, events <-chan session.Event) {
	defer h.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(ev)
		}
	}
}

// HandleWebSocket upgrades the request and registers the connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id, ok := h.register(conn)
	if !ok {
		_ = conn.Close()
		return
	}

	// Subscribers never send; reading detects the disconnect.
	go func() {
		defer h.unregister(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(conn *websocket.Conn) (uuid.UUID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return uuid.Nil, false
	}

	id := uuid.New()
	if h.snapshot != nil {
		if err := h.write(conn, h.snapshot()); err != nil {
			h.logger.Warn("websocket snapshot failed", "conn", id, "error", err)
			return uuid.Nil, false
		}
	}
	h.conns[id] = conn
	h.logger.Info("websocket connected", "conn", id, "total", len(h.conns))
	return id, true
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[id]
	if !ok {
		return
	}
	delete(h.conns, id)
	_ = conn.Close()
	h.logger.Info("websocket disconnected", "conn", id, "total", len(h.conns))
}

// Broadcast sends v as JSON to every subscriber. Connections that fail to
// accept the write are dropped.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal feed event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write failed", "conn", id, "error", err)
			delete(h.conns, id)
			_ = conn.Close()
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		delete(h.conns, id)
	}
}
