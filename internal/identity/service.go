package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/events"
)

// Identity is one resolved caller within one business.
type Identity struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	PhoneNumber string    `json:"phone_number"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Directory is the caller-identity lookup contract.
//
// FindOrCreate returns (identity, found) where found reports whether the
// caller already existed before this call.
type Directory interface {
	FindOrCreate(ctx context.Context, phone, businessID string, now time.Time) (Identity, bool, error)
}

// Service resolves caller identities in reaction to call-started events.
// It is stateless: everything it learns goes onto the call record and back
// out as a user-resolved event.
type Service struct {
	directory Directory
	calls     *callstate.Store
	bus       events.Bus
	log       *slog.Logger
	clock     func() time.Time
}

func NewService(directory Directory, calls *callstate.Store, bus events.Bus, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		directory: directory,
		calls:     calls,
		bus:       bus,
		log:       log.With("component", "identity"),
		clock:     time.Now,
	}
}

// Start subscribes the service to the event stream.
func (s *Service) Start() error {
	return s.bus.Subscribe(events.TypeCallStarted, "identity", s.onCallStarted)
}

func (s *Service) onCallStarted(ctx context.Context, e events.Event) {
	var p events.CallStarted
	if err := e.Decode(&p); err != nil {
		s.log.Warn("call.started payload unreadable", "call_id", e.CallID, "err", err)
		return
	}

	id, returning, err := s.Resolve(ctx, p.CallerPhone, p.BusinessID)
	if err != nil {
		// Resolve already degraded to a new anonymous identity; an error
		// here means even that failed, which cannot happen today.
		s.log.Error("identity resolution failed", "call_id", e.CallID, "err", err)
		return
	}

	if _, err := s.calls.SetUser(ctx, e.CallID, id.ID); err != nil {
		s.log.Warn("user not written to call record", "call_id", e.CallID, "err", err)
	}

	out, err := events.New(events.TypeUserResolved, e.CallID, s.clock(), events.UserResolved{
		UserID:              id.ID,
		IsReturningCustomer: returning,
	})
	if err != nil {
		s.log.Error("user.resolved event build failed", "call_id", e.CallID, "err", err)
		return
	}
	s.bus.Publish(ctx, out)
}

// Resolve looks the caller up by phone and business, creating a new identity
// when absent. A directory failure defaults to "new customer" rather than
// blocking the call.
func (s *Service) Resolve(ctx context.Context, phone, businessID string) (Identity, bool, error) {
	now := s.clock().UTC()

	id, found, err := s.directory.FindOrCreate(ctx, phone, businessID, now)
	if err != nil {
		s.log.Warn("directory lookup failed, defaulting to new customer",
			"business_id", businessID, "err", err)
		return Identity{
			ID:          uuid.NewString(),
			BusinessID:  businessID,
			PhoneNumber: phone,
			CreatedAt:   now,
		}, false, nil
	}
	return id, found, nil
}
