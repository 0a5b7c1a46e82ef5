package calls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"voiceagent-platform/pkg/utils"
)

// OwnershipGuard claims exclusive handling of one call ID. Webhook
// deliveries can repeat; only the claim holder initializes the call.
type OwnershipGuard interface {
	Acquire(ctx context.Context, callID string) (bool, error)
	Release(ctx context.Context, callID string) error
}

func ownerKey(callID string) string { return fmt.Sprintf("call:%s:owner", callID) }

// RedisOwnership backs the guard with the shared store, so duplicate
// deliveries are caught across process instances.
type RedisOwnership struct {
	rdb   *redis.Client
	owner string
	ttl   time.Duration
}

// NewRedisOwnership scopes claims to this instance ID. ttl bounds a claim
// left behind by a crashed instance.
func NewRedisOwnership(rdb *redis.Client, owner string, ttl time.Duration) *RedisOwnership {
	return &RedisOwnership{rdb: rdb, owner: owner, ttl: ttl}
}

func (g *RedisOwnership) Acquire(ctx context.Context, callID string) (bool, error) {
	return utils.AcquireCallOwnership(ctx, g.rdb, ownerKey(callID), g.owner, g.ttl)
}

func (g *RedisOwnership) Release(ctx context.Context, callID string) error {
	return utils.ReleaseCallOwnership(ctx, g.rdb, ownerKey(callID), g.owner)
}

// MemoryOwnership is a single-process guard for tests.
type MemoryOwnership struct {
	mu     sync.Mutex
	Err    error
	claims map[string]bool
}

func NewMemoryOwnership() *MemoryOwnership {
	return &MemoryOwnership{claims: make(map[string]bool)}
}

func (g *MemoryOwnership) Acquire(_ context.Context, callID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return false, g.Err
	}
	if g.claims[callID] {
		return false, nil
	}
	g.claims[callID] = true
	return true, nil
}

func (g *MemoryOwnership) Release(_ context.Context, callID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	delete(g.claims, callID)
	return nil
}

// Held reports whether a claim is live. Test inspection only.
func (g *MemoryOwnership) Held(callID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claims[callID]
}
