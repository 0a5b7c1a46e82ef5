package convlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores one list element per message at call:{id}:messages.
// RPUSH keeps append O(1) and LRANGE reads back in append order; the storage
// order is the observable order, no reversal needed.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func messagesKey(callID string) string { return fmt.Sprintf("call:%s:messages", callID) }

func (r *RedisRepository) Append(ctx context.Context, callID string, m Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("convlog: marshal message: %w", err)
	}
	if err := r.rdb.RPush(ctx, messagesKey(callID), raw).Err(); err != nil {
		return fmt.Errorf("convlog: append %s: %w", callID, err)
	}
	return nil
}

func (r *RedisRepository) ReadAll(ctx context.Context, callID string) ([]Message, error) {
	raws, err := r.rdb.LRange(ctx, messagesKey(callID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("convlog: read %s: %w", callID, err)
	}
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("convlog: decode message in %s: %w", callID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *RedisRepository) Count(ctx context.Context, callID string) (int64, error) {
	n, err := r.rdb.LLen(ctx, messagesKey(callID)).Result()
	if err != nil {
		return 0, fmt.Errorf("convlog: count %s: %w", callID, err)
	}
	return n, nil
}

func (r *RedisRepository) Clear(ctx context.Context, callID string) error {
	if err := r.rdb.Del(ctx, messagesKey(callID)).Err(); err != nil {
		return fmt.Errorf("convlog: clear %s: %w", callID, err)
	}
	return nil
}
