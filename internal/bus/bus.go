// Package bus provides the in-process publish/subscribe channel agents
// coordinate through. Delivery is best-effort: no persistence, no
// retry, and no ordering guarantee across different event names.
package bus

import (
	"log/slog"
	"sync"
)

// Handler receives a published payload. Payloads are shared by
// reference; handlers must not mutate them.
type Handler func(payload any)

// Bus fans events out by name. Construct one and hand it to every
// agent; there is no package-level instance.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for events named name. Handlers stay registered
// for the life of the bus; there is no unsubscribe.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish dispatches payload to every handler currently registered for
// name. Handlers are launched in registration order, each on its own
// goroutine, so Publish returns without waiting for any of them. A
// panicking handler is recovered and logged; it never disturbs the
// other subscribers or the publisher.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	subs := b.handlers[name]
	b.mu.RUnlock()

	for _, h := range subs {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("event handler panicked", "event", name, "panic", r)
				}
			}()
			h(payload)
		}()
	}
}

// SubscriberCount returns how many handlers are registered for name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
