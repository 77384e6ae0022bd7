// FILE: guardpost/src/internal/hub/hub.go
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/log"

	"guardpost/src/internal/core"
)

// Hub retains a bounded, drop-oldest history of log entries and broadcasts
// every published entry to all current subscribers. Publish never blocks:
// when the history ring is full the oldest entry is evicted, and a
// subscriber whose channel is full misses the entry (counted as a drop)
// without affecting delivery to anyone else.
type Hub struct {
	mu       sync.RWMutex
	ring     []core.LogEntry // insertion order, len <= capacity
	start    int             // index of oldest entry
	count    int
	capacity int

	subscribers map[uint64]*Subscription
	nextID      atomic.Uint64
	closed      bool

	clientBuffer int
	logger       *log.Logger

	// Statistics
	totalPublished atomic.Uint64
	totalDropped   atomic.Uint64
}

// Subscription is one independent consumer of the broadcast stream. Entries
// published after Subscribe are delivered on Entries in publish order,
// exactly once per subscription.
type Subscription struct {
	id      uint64
	entries chan core.LogEntry
	dropped atomic.Uint64
}

// Entries is the subscriber's receive channel. It is closed by Unsubscribe
// or when the hub shuts down.
func (s *Subscription) Entries() <-chan core.LogEntry {
	return s.entries
}

// Dropped reports how many entries this subscriber missed because its
// channel was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// New creates a hub with the given history capacity and per-subscriber
// channel depth.
func New(capacity, clientBuffer int, logger *log.Logger) *Hub {
	if capacity < 1 {
		capacity = 1
	}
	if clientBuffer < 1 {
		clientBuffer = 1
	}
	return &Hub{
		ring:         make([]core.LogEntry, capacity),
		capacity:     capacity,
		subscribers:  make(map[uint64]*Subscription),
		clientBuffer: clientBuffer,
		logger:       logger,
	}
}

// Publish appends the entry to the history ring, evicting the oldest entry
// at capacity, then fans it out to every subscriber. Never blocks.
func (h *Hub) Publish(entry core.LogEntry) {
	h.totalPublished.Add(1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}

	end := (h.start + h.count) % h.capacity
	h.ring[end] = entry
	if h.count < h.capacity {
		h.count++
	} else {
		h.start = (h.start + 1) % h.capacity
	}

	slow := 0
	for _, sub := range h.subscribers {
		select {
		case sub.entries <- entry:
		default:
			sub.dropped.Add(1)
			h.totalDropped.Add(1)
			slow++
		}
	}
	subscriberCount := len(h.subscribers)
	h.mu.Unlock()

	if slow > 0 {
		h.logger.Debug("msg", "Dropped entry for slow subscriber(s)",
			"component", "hub",
			"slow_subscribers", slow,
			"total_subscribers", subscriberCount)
	}
}

// Snapshot returns the most recent limit entries in chronological order.
// Safe to call concurrently with Publish.
func (h *Hub) Snapshot(limit int) []core.LogEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]core.LogEntry, 0, n)
	first := h.count - n
	for i := first; i < h.count; i++ {
		out = append(out, h.ring[(h.start+i)%h.capacity])
	}
	return out
}

// Subscribe registers a new independent consumer. Returns nil after the hub
// has shut down.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	sub := &Subscription{
		id:      h.nextID.Add(1),
		entries: make(chan core.LogEntry, h.clientBuffer),
	}
	h.subscribers[sub.id] = sub

	h.logger.Debug("msg", "Subscriber registered",
		"component", "hub",
		"subscriber_id", sub.id,
		"active_subscribers", len(h.subscribers))
	return sub
}

// Unsubscribe releases the subscription and closes its channel. Has no
// effect on other subscribers or on the history buffer. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.subscribers[sub.id]; !exists {
		return
	}
	delete(h.subscribers, sub.id)
	close(sub.entries)

	h.logger.Debug("msg", "Subscriber removed",
		"component", "hub",
		"subscriber_id", sub.id,
		"dropped_entries", sub.dropped.Load(),
		"active_subscribers", len(h.subscribers))
}

// Close shuts the hub down: all subscriber channels are closed and further
// publishes are discarded. History remains readable via Snapshot.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, sub := range h.subscribers {
		close(sub.entries)
		delete(h.subscribers, id)
	}
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() map[string]any {
	h.mu.RLock()
	buffered := h.count
	subscriberCount := len(h.subscribers)
	h.mu.RUnlock()

	return map[string]any{
		"capacity":        h.capacity,
		"buffered":        buffered,
		"subscribers":     subscriberCount,
		"total_published": h.totalPublished.Load(),
		"total_dropped":   h.totalDropped.Load(),
	}
}
