package sse

import (
	"path"
	"sync"
	"sync/atomic"

	"github.com/kbukum/dagflow/logger"
)

// DefaultClientBuffer is the number of events a client may lag behind
// before further events are dropped for it.
const DefaultClientBuffer = 256

// Event is one server-sent event.
type Event struct {
	Type string
	Data []byte
}

// Broadcaster sends events to the clients whose id matches a pattern.
type Broadcaster interface {
	// BroadcastToPattern sends ev to all clients matching the glob pattern
	// (e.g. "run:abc123:*").
	BroadcastToPattern(pattern string, ev Event)
}

// Client is one connected event stream.
type Client struct {
	id      string
	events  chan Event
	dropped atomic.Int64
}

// NewClient creates a client with room for buffer pending events.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{id: id, events: make(chan Event, buffer)}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Events returns the channel of events to write. It is closed when the
// client is unregistered or the hub stops.
func (c *Client) Events() <-chan Event { return c.events }

// Dropped returns how many events were discarded because the client was
// too slow.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Send queues ev. It returns false and drops ev when the buffer is full.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

type message struct {
	pattern string
	ev      Event
}

// Hub routes events to connected clients. All membership changes and
// deliveries happen on the Run goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Call Run to start routing.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse"),
	}
}

// Run routes events until Stop is called. Run it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.id]; ok {
				close(old.events)
			}
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "total_clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
				close(c.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "total_clients", n))

		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop closes every client and makes Run return. Safe to call multiple
// times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
	h.log.Debug("all clients closed")
}

// Register adds c. It returns false when the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its event channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToPattern queues ev for the clients whose id matches pattern.
func (h *Hub) BroadcastToPattern(pattern string, ev Event) {
	select {
	case h.broadcast <- message{pattern: pattern, ev: ev}:
	case <-h.done:
	}
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, c := range h.clients {
		matched, err := path.Match(m.pattern, id)
		if err != nil {
			h.log.Error("bad broadcast pattern", logger.MergeWithError(logger.Fields("pattern", m.pattern), err))
			return
		}
		if !matched {
			continue
		}
		if c.Send(m.ev) {
			sent++
		} else {
			h.log.Warn("client too slow, event dropped", logger.Fields("client_id", id, "event", m.ev.Type))
		}
	}
	h.log.Debug("broadcast", logger.Fields("pattern", m.pattern, "event", m.ev.Type, "match_count", sent))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the ids of the connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
