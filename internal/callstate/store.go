package callstate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voiceagent-platform/internal/resilience"
)

// Repository is the persistence contract for call records.
//
// Get returns (nil, nil) for an unknown call; callers treat that as a
// stale or expired call, not a hard error.
type Repository interface {
	Create(ctx context.Context, rec Record) (created bool, err error)
	Get(ctx context.Context, callID string) (*Record, error)
	Put(ctx context.Context, rec Record) error

	// Expire attaches a TTL to every key belonging to the call. Active
	// calls carry no expiry; the TTL is set once, at call end.
	Expire(ctx context.Context, callID string, ttl time.Duration) error
}

var ErrInvalidCall = errors.New("callstate: call_id is required")

// Store owns call records. All repository access goes through the circuit
// breaker; when the ephemeral store is unavailable, reads fall back to
// "unknown call" and writes to a logged no-op, so the live call continues.
//
// Concurrent updates use read-modify-write with last-writer-wins, which is
// acceptable because one coordinator instance writes per call.
type Store struct {
	repo    Repository
	breaker *resilience.Breaker
	log     *slog.Logger
	clock   func() time.Time
}

func NewStore(repo Repository, breaker *resilience.Breaker, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{repo: repo, breaker: breaker, log: log, clock: time.Now}
}

// Create initializes a record for a new call. Idempotent per call ID: a
// second create returns the existing record untouched, never resetting
// collected data.
func (s *Store) Create(ctx context.Context, callID, businessID, userID, phone string) (*Record, error) {
	if callID == "" {
		return nil, ErrInvalidCall
	}

	now := s.clock().UTC()
	rec := Record{
		CallID:         callID,
		BusinessID:     businessID,
		CallerPhone:    phone,
		UserID:         userID,
		Status:         StatusConnecting,
		SocketStatus:   SocketConnecting,
		Quotes:         map[string]Quote{},
		StartedAt:      now,
		LastActivityAt: now,
	}

	var out *Record
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		created, err := s.repo.Create(ctx, rec)
		if err != nil {
			return err
		}
		if created {
			out = &rec
			return nil
		}
		existing, err := s.repo.Get(ctx, callID)
		if err != nil {
			return err
		}
		out = existing
		return nil
	}, func(_ context.Context, cause error) error {
		s.log.Warn("call create degraded to in-memory record", "call_id", callID, "err", cause)
		out = &rec
		return nil
	})
	return out, err
}

// Get returns the call record, or nil for an unknown/expired call.
func (s *Store) Get(ctx context.Context, callID string) (*Record, error) {
	if callID == "" {
		return nil, ErrInvalidCall
	}
	var out *Record
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		rec, err := s.repo.Get(ctx, callID)
		if err != nil {
			return err
		}
		out = rec
		return nil
	}, func(_ context.Context, cause error) error {
		s.log.Warn("call read degraded to miss", "call_id", callID, "err", cause)
		out = nil
		return nil
	})
	return out, err
}

// Update applies mutate under read-modify-write. Unknown call is a no-op
// returning nil. LastActivityAt is refreshed on every successful update.
func (s *Store) Update(ctx context.Context, callID string, mutate func(*Record)) (*Record, error) {
	if callID == "" {
		return nil, ErrInvalidCall
	}
	var out *Record
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		rec, err := s.repo.Get(ctx, callID)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		mutate(rec)
		rec.LastActivityAt = s.clock().UTC()
		if err := s.repo.Put(ctx, *rec); err != nil {
			return err
		}
		out = rec
		return nil
	}, func(_ context.Context, cause error) error {
		s.log.Warn("call update dropped", "call_id", callID, "err", cause)
		return nil
	})
	return out, err
}

// SetStatus moves the call forward. Backward transitions are ignored.
func (s *Store) SetStatus(ctx context.Context, callID string, status Status) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		if status.rank() > r.Status.rank() {
			r.Status = status
		}
	})
}

func (s *Store) SetSocketStatus(ctx context.Context, callID string, status SocketStatus) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		r.SocketStatus = status
	})
}

// SetUser records the resolved caller identity.
func (s *Store) SetUser(ctx context.Context, callID, userID string) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		r.UserID = userID
	})
}

// SelectService commits the caller to one service. Last write wins.
func (s *Store) SelectService(ctx context.Context, callID, service string) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		r.SelectedService = service
	})
}

// AddTools unions names into the disclosed tool set, preserving order of
// first appearance. The set never shrinks.
func (s *Store) AddTools(ctx context.Context, callID string, names ...string) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		for _, n := range names {
			if n != "" && !r.HasTool(n) {
				r.ToolsAvailable = append(r.ToolsAvailable, n)
			}
		}
	})
}

// StoreQuote adds a quote. An existing quote ID is never overwritten.
func (s *Store) StoreQuote(ctx context.Context, callID string, q Quote) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		if q.ID == "" {
			return
		}
		if r.Quotes == nil {
			r.Quotes = map[string]Quote{}
		}
		if _, exists := r.Quotes[q.ID]; exists {
			return
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = s.clock().UTC()
		}
		r.Quotes[q.ID] = q
	})
}

// SelectQuote marks one collected quote as chosen. Selection is always an
// explicit caller decision; an unknown quote ID leaves the record unchanged.
// Idempotent.
func (s *Store) SelectQuote(ctx context.Context, callID, quoteID string) (*Record, error) {
	return s.Update(ctx, callID, func(r *Record) {
		if _, ok := r.Quotes[quoteID]; ok {
			r.SelectedQuoteID = quoteID
		}
	})
}

// End moves the call to ended and attaches the TTL to its keys. Forward-only:
// removing the TTL from an ended call is not supported.
func (s *Store) End(ctx context.Context, callID string, ttl time.Duration) error {
	if _, err := s.SetStatus(ctx, callID, StatusEnded); err != nil {
		return err
	}
	return s.breaker.Do(ctx, func(ctx context.Context) error {
		return s.repo.Expire(ctx, callID, ttl)
	}, func(_ context.Context, cause error) error {
		s.log.Warn("call expiry not set", "call_id", callID, "err", cause)
		return nil
	})
}
