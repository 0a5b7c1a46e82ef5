package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voiceagent-platform/internal/events"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call history entries.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Entry) error
	ByCall(ctx context.Context, callID string, limit int) ([]Entry, error)
}

// Service records the per-call event trail.
//
// IMPORTANT:
// - History is internal-only ops tooling; it is never read back by call flows.
// - Recording is best-effort: a failed append is logged and dropped.

type Service struct {
	repo  Repository
	bus   events.Bus
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, bus events.Bus, log *slog.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, clock: time.Now}
}

// Start subscribes the recorder to every event type on the bus.
func (s *Service) Start() error {
	types := []events.Type{
		events.TypeCallStarted,
		events.TypeCallMessage,
		events.TypeCallEnded,
		events.TypeUserResolved,
		events.TypeQuoteCollected,
	}
	for _, t := range types {
		if err := s.bus.Subscribe(t, "audit", s.onEvent); err != nil {
			return fmt.Errorf("audit: subscribe %s: %w", t, err)
		}
	}
	return nil
}

func (s *Service) onEvent(ctx context.Context, e events.Event) {
	entry := Entry{
		CallID:    e.CallID,
		Type:      string(e.Type),
		Summary:   summarize(e),
		Metadata:  string(e.Data),
		CreatedAt: e.Timestamp,
	}
	if err := s.Append(ctx, entry); err != nil {
		s.log.Warn("call history append failed",
			"call_id", e.CallID, "type", e.Type, "error", err)
	}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CallID == "" {
		return ErrInvalidEntry
	}
	if e.Type == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// History returns up to limit entries for a call, oldest first.
func (s *Service) History(ctx context.Context, callID string, limit int) ([]Entry, error) {
	if callID == "" {
		return nil, ErrInvalidEntry
	}
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ByCall(ctx, callID, limit)
}

func summarize(e events.Event) string {
	switch e.Type {
	case events.TypeCallStarted:
		var p events.CallStarted
		if e.Decode(&p) == nil {
			return fmt.Sprintf("call started for business %s", p.BusinessID)
		}
	case events.TypeCallMessage:
		var p events.CallMessage
		if e.Decode(&p) == nil {
			return fmt.Sprintf("%s turn recorded", p.Role)
		}
	case events.TypeCallEnded:
		var p events.CallEnded
		if e.Decode(&p) == nil {
			return fmt.Sprintf("call ended (%s)", p.Reason)
		}
	case events.TypeUserResolved:
		var p events.UserResolved
		if e.Decode(&p) == nil {
			if p.IsReturningCustomer {
				return "caller resolved as returning customer"
			}
			return "caller resolved as new customer"
		}
	case events.TypeQuoteCollected:
		var p events.QuoteCollected
		if e.Decode(&p) == nil {
			return fmt.Sprintf("quote %s collected for %s", p.QuoteID, p.Service)
		}
	}
	return string(e.Type)
}
