package reporting

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisRepo keeps per-business counters in a redis hash so tallies survive
// restarts and aggregate across instances.

type RedisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) *RedisRepo { return &RedisRepo{rdb: rdb} }

func statsKey(businessID string) string {
	return fmt.Sprintf("stats:business:%s", businessID)
}

func (r *RedisRepo) Increment(ctx context.Context, businessID string, c Counter) error {
	if err := r.rdb.HIncrBy(ctx, statsKey(businessID), string(c), 1).Err(); err != nil {
		return fmt.Errorf("reporting: increment %s/%s: %w", businessID, c, err)
	}
	return nil
}

func (r *RedisRepo) Summary(ctx context.Context, businessID string) (BusinessStats, error) {
	fields, err := r.rdb.HGetAll(ctx, statsKey(businessID)).Result()
	if err != nil {
		return BusinessStats{}, fmt.Errorf("reporting: summary %s: %w", businessID, err)
	}

	get := func(c Counter) int {
		n, _ := strconv.Atoi(fields[string(c)])
		return n
	}
	return BusinessStats{
		BusinessID:       businessID,
		CallsStarted:     get(CounterCallsStarted),
		CallsEnded:       get(CounterCallsEnded),
		QuotesCollected:  get(CounterQuotesCollected),
		ReturningCallers: get(CounterReturningCaller),
		NewCallers:       get(CounterNewCaller),
	}, nil
}
