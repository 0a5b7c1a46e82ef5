package events

import "context"

// Handler consumes one event. Handlers run on the bus's delivery goroutine;
// long work should be dispatched to the handler's own goroutine.
type Handler func(ctx context.Context, e Event)

// Bus fans every published event out to every interested subscriber.
//
// Contract:
//   - Publish never returns an error to the caller. Call progress must not
//     halt because coordination failed to fan out; delivery failures are
//     logged and swallowed.
//   - Delivery is at-least-once with best-effort per-publisher ordering.
//   - A handler failure (panic included) never suppresses other handlers
//     registered for the same event.
type Bus interface {
	Publish(ctx context.Context, e Event)
	Subscribe(t Type, subscriberID string, h Handler) error
	Close() error
}
