package reporting

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory counter store for tests and single-instance
// deployments.

type MemoryRepo struct {
	mu     sync.Mutex
	counts map[string]map[Counter]int

	Err error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{counts: make(map[string]map[Counter]int)}
}

func (r *MemoryRepo) Increment(ctx context.Context, businessID string, c Counter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	m := r.counts[businessID]
	if m == nil {
		m = make(map[Counter]int)
		r.counts[businessID] = m
	}
	m[c]++
	return nil
}

func (r *MemoryRepo) Summary(ctx context.Context, businessID string) (BusinessStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return BusinessStats{}, r.Err
	}
	m := r.counts[businessID]
	return BusinessStats{
		BusinessID:       businessID,
		CallsStarted:     m[CounterCallsStarted],
		CallsEnded:       m[CounterCallsEnded],
		QuotesCollected:  m[CounterQuotesCollected],
		ReturningCallers: m[CounterReturningCaller],
		NewCallers:       m[CounterNewCaller],
	}, nil
}
