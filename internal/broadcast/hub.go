// Package broadcast provides a best-effort fan-out of values to subscribers.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog"
)

// DefaultSubscriberBuffer is the per-subscriber channel capacity.
const DefaultSubscriberBuffer = 64

// Hub fans values out to subscribers without ever blocking the publisher.
// A subscriber whose buffer is full misses that value.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	buffer int
	closed bool
	log    zerolog.Logger
}

// New creates a hub whose subscriber channels hold buffer values.
func New[T any](buffer int, log zerolog.Logger) *Hub[T] {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub[T]{subs: make(map[int]chan T), buffer: buffer, log: log}
}

// Subscribe returns a subscription id and its channel. On a closed hub the
// channel is already closed.
func (h *Hub[T]) Subscribe() (int, <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan T, h.buffer)
	if h.closed {
		close(ch)
		return -1, ch
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscription. Unknown ids are ignored.
func (h *Hub[T]) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers v to every subscriber with room and reports how many
// deliveries were dropped.
func (h *Hub[T]) Publish(v T) (dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	for id, ch := range h.subs {
		select {
		case ch <- v:
		default:
			dropped++
			h.log.Debug().Int("subscriber", id).Msg("subscriber buffer full, update dropped")
		}
	}
	return dropped
}

// Len returns the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Further publishes are no-ops.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
