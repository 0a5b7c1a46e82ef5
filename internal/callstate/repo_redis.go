package callstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores one JSON value per call at call:{id}:state.
// Active-call keys have no expiry; Expire covers every key in the call's
// namespace so the whole call ages out together.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func stateKey(callID string) string { return fmt.Sprintf("call:%s:state", callID) }

// callKeys is the full ephemeral namespace of one call: its state record,
// conversation list, knowledge hash and ownership claim.
func callKeys(callID string) []string {
	return []string{
		fmt.Sprintf("call:%s:state", callID),
		fmt.Sprintf("call:%s:messages", callID),
		fmt.Sprintf("call:%s:knowledge", callID),
		fmt.Sprintf("call:%s:owner", callID),
	}
}

func (r *RedisRepository) Create(ctx context.Context, rec Record) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("callstate: marshal record: %w", err)
	}
	// SETNX keeps create idempotent: a concurrent or repeated create never
	// resets an existing record.
	created, err := r.rdb.SetNX(ctx, stateKey(rec.CallID), raw, 0).Result()
	if err != nil {
		return false, fmt.Errorf("callstate: create %s: %w", rec.CallID, err)
	}
	return created, nil
}

func (r *RedisRepository) Get(ctx context.Context, callID string) (*Record, error) {
	raw, err := r.rdb.Get(ctx, stateKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("callstate: get %s: %w", callID, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("callstate: decode %s: %w", callID, err)
	}
	return &rec, nil
}

func (r *RedisRepository) Put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("callstate: marshal record: %w", err)
	}
	// KEEPTTL preserves the expiry on an already-ended call; an active call
	// has none.
	if err := r.rdb.Set(ctx, stateKey(rec.CallID), raw, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("callstate: put %s: %w", rec.CallID, err)
	}
	return nil
}

func (r *RedisRepository) Expire(ctx context.Context, callID string, ttl time.Duration) error {
	pipe := r.rdb.Pipeline()
	for _, k := range callKeys(callID) {
		pipe.Expire(ctx, k, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("callstate: expire %s: %w", callID, err)
	}
	return nil
}
