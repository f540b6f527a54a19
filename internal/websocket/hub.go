package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Entities that produce change notifications.
const (
	EntityProfile     = "profile"
	EntityLog         = "log"
	EntityPartnership = "partnership"
	EntityBackup      = "backup"
)

// Message is a real-time sync notification delivered to connected
// clients after a write. It carries no record data: clients reload
// their visible state on receipt. Reloads are idempotent and
// superseding, so a dropped message costs a refresh, never
// correctness.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	UserID int64          `json:"user_id,omitempty"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, userID int64, id string) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		UserID: userID,
		ID:     id,
	}
}

// AudienceFunc resolves which users may observe events about the given
// user: the user themselves plus their accepted partners. It is
// consulted per broadcast so a newly accepted partnership takes effect
// without reconnecting.
type AudienceFunc func(userID int64) []int64

// Hub maintains the set of active WebSocket clients and routes
// messages to the clients allowed to see them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	audience AudienceFunc
	logger   *slog.Logger
}

// NewHub creates a Hub. A nil audience delivers every message to every
// client.
func NewHub(logger *slog.Logger, audience AudienceFunc) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		audience: audience,
		logger:   logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast routes a message to the connections of its audience. A
// message about a user reaches that user and their accepted partners;
// a message with no subject (UserID zero, e.g. backup status) reaches
// everyone.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	var allowed map[int64]struct{}
	if msg.UserID != 0 && h.audience != nil {
		allowed = make(map[int64]struct{})
		for _, id := range h.audience(msg.UserID) {
			allowed[id] = struct{}{}
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if allowed != nil {
			if _, ok := allowed[c.userID]; !ok {
				continue
			}
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
