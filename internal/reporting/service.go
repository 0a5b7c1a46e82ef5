package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"voiceagent-platform/internal/events"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts counter storage for reporting.

type Repository interface {
	Increment(ctx context.Context, businessID string, c Counter) error
	Summary(ctx context.Context, businessID string) (BusinessStats, error)
}

// Service tallies call activity per business from bus events.
//
// Only call.started carries a business id, so the service keeps a small
// call-to-business index for the lifetime of each call. The started-first
// ordering guarantee means the index is populated before any other event
// for that call arrives.

type Service struct {
	repo Repository
	bus  events.Bus
	log  *slog.Logger

	mu       sync.Mutex
	business map[string]string
}

func NewService(repo Repository, bus events.Bus, log *slog.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, business: make(map[string]string)}
}

// Start subscribes the tally to the event types it counts.
func (s *Service) Start() error {
	subs := map[events.Type]events.Handler{
		events.TypeCallStarted:    s.onCallStarted,
		events.TypeCallEnded:      s.onCallEnded,
		events.TypeUserResolved:   s.onUserResolved,
		events.TypeQuoteCollected: s.onQuoteCollected,
	}
	for t, h := range subs {
		if err := s.bus.Subscribe(t, "reporting", h); err != nil {
			return fmt.Errorf("reporting: subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Summary returns the aggregated counters for one business.
func (s *Service) Summary(ctx context.Context, businessID string) (BusinessStats, error) {
	if businessID == "" {
		return BusinessStats{}, ErrInvalidRequest
	}
	return s.repo.Summary(ctx, businessID)
}

func (s *Service) onCallStarted(ctx context.Context, e events.Event) {
	var p events.CallStarted
	if err := e.Decode(&p); err != nil {
		s.log.Warn("stats: bad call.started payload", "call_id", e.CallID, "error", err)
		return
	}
	s.mu.Lock()
	s.business[e.CallID] = p.BusinessID
	s.mu.Unlock()

	s.count(ctx, p.BusinessID, CounterCallsStarted)
}

func (s *Service) onCallEnded(ctx context.Context, e events.Event) {
	s.mu.Lock()
	businessID, ok := s.business[e.CallID]
	delete(s.business, e.CallID)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.count(ctx, businessID, CounterCallsEnded)
}

func (s *Service) onUserResolved(ctx context.Context, e events.Event) {
	var p events.UserResolved
	if err := e.Decode(&p); err != nil {
		return
	}
	businessID, ok := s.lookup(e.CallID)
	if !ok {
		return
	}
	if p.IsReturningCustomer {
		s.count(ctx, businessID, CounterReturningCaller)
	} else {
		s.count(ctx, businessID, CounterNewCaller)
	}
}

func (s *Service) onQuoteCollected(ctx context.Context, e events.Event) {
	businessID, ok := s.lookup(e.CallID)
	if !ok {
		return
	}
	s.count(ctx, businessID, CounterQuotesCollected)
}

func (s *Service) lookup(callID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	businessID, ok := s.business[callID]
	return businessID, ok
}

func (s *Service) count(ctx context.Context, businessID string, c Counter) {
	if err := s.repo.Increment(ctx, businessID, c); err != nil {
		s.log.Warn("stats: increment failed", "business_id", businessID, "counter", c, "error", err)
	}
}
