// Package realtime pushes per-user events to connected WebSocket clients.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

const sendBuffer = 64

// Event is the frame written to clients.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type client struct {
	userID string
	send   chan []byte
}

// Hub tracks the live connections of each user. A user may hold several.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	logger  *logging.Logger
	now     func() time.Time
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Hub) register(userID string) *client {
	c := &client{userID: userID, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

// Publish sends an event to every connection of userID. Slow clients whose
// buffer is full miss the event.
func (h *Hub) Publish(userID, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("realtime: failed to marshal payload", "kind", kind, "error", err)
		return
	}
	frame, err := json.Marshal(Event{Type: kind, Timestamp: h.now().UTC(), Data: data})
	if err != nil {
		h.logger.Error("realtime: failed to marshal event", "kind", kind, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("realtime: dropping event for slow client", "user_id", userID, "kind", kind)
		}
	}
}

// ConnectionCount returns how many connections userID holds.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
