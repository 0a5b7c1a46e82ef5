package knowledge

import (
	"context"
	"errors"
	"log/slog"

	"voiceagent-platform/internal/resilience"
)

// Provider is the source of a business's facts: service hours, address,
// pricing notes, whatever the agent should be able to answer from.
type Provider interface {
	Facts(ctx context.Context, businessID string) (map[string]string, error)
}

// Repository is the per-call fact store. The hash is written once at
// preload and only read afterwards.
type Repository interface {
	Preload(ctx context.Context, callID string, facts map[string]string) error
	Fact(ctx context.Context, callID, key string) (string, bool, error)
	All(ctx context.Context, callID string) (map[string]string, error)
	Drop(ctx context.Context, callID string) error
}

var ErrInvalidCall = errors.New("knowledge: call_id is required")

// Cache preloads one read-only fact set per call so the session never
// queries the business backend mid-conversation. A failed preload degrades
// to an empty fact set; the call proceeds without answers it can't give.
type Cache struct {
	provider Provider
	repo     Repository
	breaker  *resilience.Breaker
	log      *slog.Logger
}

func NewCache(provider Provider, repo Repository, breaker *resilience.Breaker, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		provider: provider,
		repo:     repo,
		breaker:  breaker,
		log:      log.With("component", "knowledge"),
	}
}

// Preload fetches the business's facts and stages them for the call.
// Returns the number of facts loaded.
func (c *Cache) Preload(ctx context.Context, callID, businessID string) (int, error) {
	if callID == "" {
		return 0, ErrInvalidCall
	}

	facts, err := c.provider.Facts(ctx, businessID)
	if err != nil {
		c.log.Warn("knowledge provider failed, call proceeds without facts",
			"call_id", callID, "business_id", businessID, "err", err)
		return 0, nil
	}
	if len(facts) == 0 {
		return 0, nil
	}

	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.repo.Preload(ctx, callID, facts)
	}, func(_ context.Context, cause error) error {
		c.log.Warn("knowledge preload dropped", "call_id", callID, "err", cause)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(facts), nil
}

// Fact answers a single key. A miss or a degraded store both come back as
// not-found.
func (c *Cache) Fact(ctx context.Context, callID, key string) (string, bool, error) {
	if callID == "" {
		return "", false, ErrInvalidCall
	}
	var (
		val string
		ok  bool
	)
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		v, found, err := c.repo.Fact(ctx, callID, key)
		if err != nil {
			return err
		}
		val, ok = v, found
		return nil
	}, func(_ context.Context, cause error) error {
		c.log.Warn("knowledge read degraded to miss", "call_id", callID, "key", key, "err", cause)
		return nil
	})
	return val, ok, err
}

// All returns the call's full fact set.
func (c *Cache) All(ctx context.Context, callID string) (map[string]string, error) {
	if callID == "" {
		return nil, ErrInvalidCall
	}
	var out map[string]string
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		facts, err := c.repo.All(ctx, callID)
		if err != nil {
			return err
		}
		out = facts
		return nil
	}, func(_ context.Context, cause error) error {
		c.log.Warn("knowledge read degraded to empty", "call_id", callID, "err", cause)
		return nil
	})
	return out, err
}

// Drop removes the call's staged facts. Called at end of call.
func (c *Cache) Drop(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrInvalidCall
	}
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.repo.Drop(ctx, callID)
	}, func(_ context.Context, cause error) error {
		c.log.Warn("knowledge drop skipped", "call_id", callID, "err", cause)
		return nil
	})
}
