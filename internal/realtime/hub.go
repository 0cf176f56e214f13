package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub tracks connected snapshot subscribers and pushes each committed quote
// round to all of them. A write failure drops the subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*websocket.Conn]struct{}
	logger      *zap.Logger
}

// NewHub creates an empty subscriber registry.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[*websocket.Conn]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a connection for snapshot broadcasts.
func (h *Hub) Subscribe(conn *websocket.Conn) {
	h.mu.Lock()
	h.subscribers[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("snapshot subscriber added")
}

// Unsubscribe removes and closes a connection.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.subscribers, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// BroadcastJSON sends the value to every subscriber, dropping any connection
// that fails to accept the write.
func (h *Hub) BroadcastJSON(v any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers))
	for conn := range h.subscribers {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("dropping snapshot subscriber", zap.Error(err))
			h.Unsubscribe(conn)
		}
	}
}
