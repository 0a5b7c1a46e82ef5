package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryBus is the in-process Bus used by unit tests and single-instance
// deployments. Dispatch is synchronous, so per-publisher ordering holds
// trivially.
type MemoryBus struct {
	log *slog.Logger

	mu       sync.Mutex
	handlers map[Type][]subscription
	closed   bool
}

func NewMemoryBus(log *slog.Logger) *MemoryBus {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryBus{log: log, handlers: make(map[Type][]subscription)}
}

func (b *MemoryBus) Publish(ctx context.Context, e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]subscription, len(b.handlers[e.Type]))
	copy(subs, b.handlers[e.Type])
	b.mu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked",
						"subscriber", s.id, "type", e.Type, "call_id", e.CallID, "panic", r)
				}
			}()
			s.handler(ctx, e)
		}()
	}
}

func (b *MemoryBus) Subscribe(t Type, subscriberID string, h Handler) error {
	if !t.known() {
		return fmt.Errorf("events: unknown event type %q", t)
	}
	if h == nil {
		return fmt.Errorf("events: nil handler for %q (subscriber %s)", t, subscriberID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("events: bus is closed")
	}
	b.handlers[t] = append(b.handlers[t], subscription{id: subscriberID, handler: h})
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
