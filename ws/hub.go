// Package ws fans out new-comment events to every connected subscriber over
// WebSocket, using github.com/coder/websocket. There is a single logical
// group: every client hears every event. Publishing is fire-and-forget; a
// slow client drops messages rather than stalling the write path.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/commentstream/backend/models"
)

// Hub tracks the connected clients and broadcasts serialized events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	log *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	if h.log != nil {
		h.log.Debugf("subscriber connected, active=%d", len(h.clients))
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
		if h.log != nil {
			h.log.Debugf("subscriber disconnected, active=%d", len(h.clients))
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues data for every connected client. Clients whose send
// buffers are full miss the message; that is logged and otherwise ignored.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			if h.log != nil {
				h.log.Warnf("dropping event for slow subscriber")
			}
		}
	}
}

// NewComment implements store.Notifier. Marshal failures are logged and
// swallowed: publishing never affects the create operation.
func (h *Hub) NewComment(c *models.Comment) {
	data, err := json.Marshal(NewCommentEvent(c))
	if err != nil {
		if h.log != nil {
			h.log.Errorf("marshal new_comment event: %v", err)
		}
		return
	}
	h.Broadcast(data)
}

// Shutdown disconnects every client and rejects new registrations.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
