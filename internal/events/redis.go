package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel is the single logical stream all event types multiplex onto.
// One underlying subscription per process, regardless of how many event
// types are consumed; adding a new event type never adds a subscription.
const Channel = "voiceagent:events"

type subscription struct {
	id      string
	handler Handler
}

// RedisBus is the cross-process Bus implementation over one pub/sub channel.
type RedisBus struct {
	rdb *redis.Client
	log *slog.Logger

	mu       sync.Mutex
	handlers map[Type][]subscription
	pubsub   *redis.PubSub
	closed   bool
}

func NewRedisBus(rdb *redis.Client, log *slog.Logger) *RedisBus {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{
		rdb:      rdb,
		log:      log,
		handlers: make(map[Type][]subscription),
	}
}

// Publish serializes the event onto the shared channel. Delivery failure is
// logged and swallowed; the live call takes priority over fan-out.
func (b *RedisBus) Publish(ctx context.Context, e Event) {
	raw, err := encodeEnvelope(e)
	if err != nil {
		b.log.Error("event encode failed", "type", e.Type, "call_id", e.CallID, "err", err)
		return
	}
	if err := b.rdb.Publish(ctx, Channel, raw).Err(); err != nil {
		b.log.Warn("event publish failed", "type", e.Type, "call_id", e.CallID, "err", err)
	}
}

// Subscribe registers a handler for one event type. The first subscriber
// reserves the underlying channel subscription synchronously, under the bus
// lock, before this call returns; two near-simultaneous subscribers cannot
// both open the channel.
func (b *RedisBus) Subscribe(t Type, subscriberID string, h Handler) error {
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

	if b.pubsub == nil {
		ps := b.rdb.Subscribe(context.Background(), Channel)
		// Wait for the subscription confirmation so the reservation is real
		// before any later subscriber observes b.pubsub != nil.
		if _, err := ps.Receive(context.Background()); err != nil {
			_ = ps.Close()
			return fmt.Errorf("events: channel subscribe failed: %w", err)
		}
		b.pubsub = ps
		go b.receiveLoop(ps)
	}
	return nil
}

func (b *RedisBus) receiveLoop(ps *redis.PubSub) {
	for msg := range ps.Channel() {
		e, err := decodeEnvelope([]byte(msg.Payload))
		if err != nil {
			b.log.Warn("event decode failed", "err", err)
			continue
		}
		b.dispatch(e)
	}
}

// dispatch runs every handler registered for the event's type. Consumers see
// the whole stream and filter internally; the bus only routes by the closed
// type tag.
func (b *RedisBus) dispatch(e Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.handlers[e.Type]))
	copy(subs, b.handlers[e.Type])
	b.mu.Unlock()

	for _, s := range subs {
		b.runHandler(s, e)
	}
}

func (b *RedisBus) runHandler(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				"subscriber", s.id, "type", e.Type, "call_id", e.CallID, "panic", r)
		}
	}()
	s.handler(context.Background(), e)
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
