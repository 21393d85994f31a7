// Package bus is the in-process push-notification hub between the sync
// engine and the view-models. Topics are hierarchical strings matched by
// prefix; delivery is non-blocking, a slow subscriber drops events rather
// than stalling the engine.
package bus

import (
	"strings"
	"sync"
)

// Bus fans push events out to prefix-matched subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Publish delivers evt to every subscriber whose prefix matches evt.Topic.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Topic, sub.prefix) {
			select {
			case sub.ch <- evt:
			default:
				// Subscriber buffer full; drop rather than block the engine.
			}
		}
	}
}

// Subscribe registers a prefix subscription with the given channel buffer.
// The returned release func must be called when the owning view is torn
// down or its scope changes, or the subscription leaks.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
