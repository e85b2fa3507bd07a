package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
)

// Hub tracks every live connection in this process, grouped by room and by
// identity. Delivery is best-effort: a subscriber whose send queue is full
// simply misses the event.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Client]struct{}
	byIdentity map[string]map[*Client]struct{}
	total      int

	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		byIdentity: make(map[string]map[*Client]struct{}),
		logger:     logger,
	}
}

// Register adds a connection and broadcasts the fresh presence count to
// every connection in the process.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*Client]struct{})
	}
	h.rooms[c.room][c] = struct{}{}
	if h.byIdentity[c.identity] == nil {
		h.byIdentity[c.identity] = make(map[*Client]struct{})
	}
	h.byIdentity[c.identity][c] = struct{}{}
	h.total++
	count := h.total
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	h.broadcastUserCount(count)
}

// Unregister drops a connection; no further delivery reaches it. Exactly
// one presence rebroadcast follows.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.rooms[c.room][c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.rooms[c.room], c)
	if len(h.rooms[c.room]) == 0 {
		delete(h.rooms, c.room)
	}
	delete(h.byIdentity[c.identity], c)
	if len(h.byIdentity[c.identity]) == 0 {
		delete(h.byIdentity, c.identity)
	}
	h.total--
	count := h.total
	close(c.send)
	h.mu.Unlock()

	metrics.WSConnections.Dec()
	h.broadcastUserCount(count)
}

// Count returns the number of open connections in this process.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Online returns the number of connections subscribed to a room.
func (h *Hub) Online(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastRoom delivers payload to every connection subscribed to roomID.
func (h *Hub) BroadcastRoom(roomID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.trySend(payload)
	}
}

// BroadcastAll delivers payload to every connection in the process.
func (h *Hub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.rooms {
		for c := range clients {
			c.trySend(payload)
		}
	}
}

// Notify delivers payload to every connection held by one identity.
func (h *Hub) Notify(identity string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byIdentity[identity] {
		c.trySend(payload)
	}
}

func (h *Hub) broadcastUserCount(count int) {
	payload, err := json.Marshal(Event{Type: EventUserCount, Count: count})
	if err != nil {
		return
	}
	metrics.EventsBroadcast.WithLabelValues(EventUserCount).Inc()
	h.BroadcastAll(payload)
}
