package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the breaker's lifecycle position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Settings tunes one breaker instance.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker open.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing one
	// trial operation.
	ResetTimeout time.Duration
}

func (s Settings) withDefaults() Settings {
	out := s
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = 5
	}
	if out.ResetTimeout <= 0 {
		out.ResetTimeout = 30 * time.Second
	}
	return out
}

// Fallback substitutes a safe result when the wrapped operation is skipped or
// fails. Reads typically fall back to a zero value, writes to a no-op;
// correctness of the live call takes priority over persistence completeness.
type Fallback func(ctx context.Context, cause error) error

// Breaker stops hammering a failing dependency. State is process-local by
// design; instances do not coordinate.
type Breaker struct {
	name     string
	settings Settings
	log      *slog.Logger
	clock    func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailureAt time.Time
	trialInFlight bool
}

func NewBreaker(name string, settings Settings, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.Default()
	}
	return &Breaker{
		name:     name,
		settings: settings.withDefaults(),
		log:      log,
		clock:    time.Now,
		state:    StateClosed,
	}
}

// State reports the current breaker state, accounting for reset-timeout
// expiry (open transitions to half-open lazily on observation).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.observe()
}

// observe must be called with the lock held.
func (b *Breaker) observe() State {
	if b.state == StateOpen && b.clock().Sub(b.lastFailureAt) >= b.settings.ResetTimeout {
		b.state = StateHalfOpen
	}
	return b.state
}

// Do runs op under the breaker. In the open state op is skipped entirely and
// the fallback is invoked; in closed/half-open, op runs and a failure both
// counts toward the threshold and invokes the fallback. A nil fallback means
// the caller accepts the raw error.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, fallback Fallback) error {
	b.mu.Lock()
	state := b.observe()
	if state == StateOpen || (state == StateHalfOpen && b.trialInFlight) {
		b.mu.Unlock()
		if fallback != nil {
			return fallback(ctx, nil)
		}
		return nil
	}
	if state == StateHalfOpen {
		// Exactly one trial operation probes the dependency.
		b.trialInFlight = true
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	b.trialInFlight = false
	if err != nil {
		b.failureCount++
		b.lastFailureAt = b.clock()
		if state == StateHalfOpen || b.failureCount >= b.settings.FailureThreshold {
			if b.state != StateOpen {
				b.log.Warn("circuit opened", "breaker", b.name, "failures", b.failureCount, "err", err)
			}
			b.state = StateOpen
		}
		b.mu.Unlock()

		if fallback != nil {
			return fallback(ctx, err)
		}
		return err
	}

	if b.state != StateClosed {
		b.log.Info("circuit closed", "breaker", b.name)
	}
	b.state = StateClosed
	b.failureCount = 0
	b.mu.Unlock()
	return nil
}
