// Package notify delivers entity-changed events to interested observers.
// Dashboards subscribe per table (in process or over a WebSocket) and
// recompute their views on change instead of polling the database.
package notify

import (
	"sync"
	"time"
)

// Event describes one change to a stored entity.
type Event struct {
	Table     string    `json:"table"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entityId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans events out to in-process subscribers and connected WebSocket
// clients. All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[int]func(Event) // table -> subscriber set
	nextID  int
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:    make(map[string]map[int]func(Event)),
		clients: make(map[*Client]struct{}),
	}
}

// Subscribe registers fn for every event on the given table and returns a
// cancel function. fn runs synchronously on the publishing goroutine, so it
// must not block.
func (h *Hub) Subscribe(table string, fn func(Event)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[table] == nil {
		h.subs[table] = make(map[int]func(Event))
	}
	id := h.nextID
	h.nextID++
	h.subs[table][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[table], id)
	}
}

// Publish delivers the event to every subscriber of its table and to every
// WebSocket client subscribed to that table.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subs[e.Table]))
	for _, fn := range h.subs[e.Table] {
		fns = append(fns, fn)
	}
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
	for _, c := range clients {
		c.deliver(e)
	}
}

// EntityChanged implements the engine's event sink.
func (h *Hub) EntityChanged(table, action, entityID string) {
	h.Publish(Event{Table: table, Action: action, EntityID: entityID})
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// unregister removes the client and signals its write pump. The send channel
// is left open because a concurrent Publish may still be delivering to it.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.done)
}
