package convlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voiceagent-platform/internal/resilience"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one spoken or system turn. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// CorrelationID links back to the originating protocol event, when any.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Repository is the persistence contract for one call's ordered turn list.
//
// Append MUST be O(1) in the number of existing messages. Rewriting the full
// history per append degrades quadratically as a call grows and is the
// anti-pattern this package exists to avoid.
type Repository interface {
	Append(ctx context.Context, callID string, m Message) error
	ReadAll(ctx context.Context, callID string) ([]Message, error)
	Count(ctx context.Context, callID string) (int64, error)
	Clear(ctx context.Context, callID string) error
}

var (
	ErrInvalidCall = errors.New("convlog: call_id is required")
	ErrInvalidRole = errors.New("convlog: invalid message role")
)

// Log is the append-only conversation record of a call, read back in exact
// append order. It is never rewritten: appended during the call, read in
// full and cleared at flush time.
type Log struct {
	repo    Repository
	breaker *resilience.Breaker
	log     *slog.Logger
	clock   func() time.Time
}

func NewLog(repo Repository, breaker *resilience.Breaker, log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{repo: repo, breaker: breaker, log: log, clock: time.Now}
}

// Append records one turn. A missing ID or timestamp is filled in; a dropped
// append (store unavailable) is logged, not surfaced — the spoken turn has
// already happened and the call must continue.
func (l *Log) Append(ctx context.Context, callID string, m Message) error {
	if callID == "" {
		return ErrInvalidCall
	}
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return ErrInvalidRole
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = l.clock().UTC()
	}

	return l.breaker.Do(ctx, func(ctx context.Context) error {
		return l.repo.Append(ctx, callID, m)
	}, func(_ context.Context, cause error) error {
		l.log.Warn("conversation append dropped", "call_id", callID, "role", m.Role, "err", cause)
		return nil
	})
}

// ReadAll returns every message in append order. For all N >= 0, the order
// matches the order of the N appends.
func (l *Log) ReadAll(ctx context.Context, callID string) ([]Message, error) {
	if callID == "" {
		return nil, ErrInvalidCall
	}
	var out []Message
	err := l.breaker.Do(ctx, func(ctx context.Context) error {
		msgs, err := l.repo.ReadAll(ctx, callID)
		if err != nil {
			return err
		}
		out = msgs
		return nil
	}, func(_ context.Context, cause error) error {
		l.log.Warn("conversation read degraded to empty", "call_id", callID, "err", cause)
		out = nil
		return nil
	})
	return out, err
}

// Count returns the number of appended messages.
func (l *Log) Count(ctx context.Context, callID string) (int64, error) {
	if callID == "" {
		return 0, ErrInvalidCall
	}
	var out int64
	err := l.breaker.Do(ctx, func(ctx context.Context) error {
		n, err := l.repo.Count(ctx, callID)
		if err != nil {
			return err
		}
		out = n
		return nil
	}, func(_ context.Context, cause error) error {
		l.log.Warn("conversation count degraded to zero", "call_id", callID, "err", cause)
		out = 0
		return nil
	})
	return out, err
}

// Clear drops the call's log. Used after a successful durable flush, or on
// explicit reset.
func (l *Log) Clear(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrInvalidCall
	}
	return l.breaker.Do(ctx, func(ctx context.Context) error {
		return l.repo.Clear(ctx, callID)
	}, func(_ context.Context, cause error) error {
		l.log.Warn("conversation clear dropped", "call_id", callID, "err", cause)
		return nil
	})
}
