package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores one hash per call at call:{id}:knowledge. The key
// carries no expiry of its own; the call-state Expire pass ages it out with
// the rest of the call's namespace.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func knowledgeKey(callID string) string { return fmt.Sprintf("call:%s:knowledge", callID) }

func (r *RedisRepository) Preload(ctx context.Context, callID string, facts map[string]string) error {
	if err := r.rdb.HSet(ctx, knowledgeKey(callID), facts).Err(); err != nil {
		return fmt.Errorf("knowledge: preload %s: %w", callID, err)
	}
	return nil
}

func (r *RedisRepository) Fact(ctx context.Context, callID, key string) (string, bool, error) {
	val, err := r.rdb.HGet(ctx, knowledgeKey(callID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("knowledge: fact %s/%s: %w", callID, key, err)
	}
	return val, true, nil
}

func (r *RedisRepository) All(ctx context.Context, callID string) (map[string]string, error) {
	facts, err := r.rdb.HGetAll(ctx, knowledgeKey(callID)).Result()
	if err != nil {
		return nil, fmt.Errorf("knowledge: all %s: %w", callID, err)
	}
	return facts, nil
}

func (r *RedisRepository) Drop(ctx context.Context, callID string) error {
	if err := r.rdb.Del(ctx, knowledgeKey(callID)).Err(); err != nil {
		return fmt.Errorf("knowledge: drop %s: %w", callID, err)
	}
	return nil
}
