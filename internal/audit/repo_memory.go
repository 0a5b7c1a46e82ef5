package audit

import (
	"context"
	"sync"
)

const defaultPerCallCap = 200

// MemoryRepo is an in-memory append-only repository. Each call keeps at most
// perCallCap entries; older entries are evicted first.

type MemoryRepo struct {
	mu         sync.Mutex
	byCall     map[string][]Entry
	perCallCap int

	Err error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCall: make(map[string][]Entry), perCallCap: defaultPerCallCap}
}

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	entries := append(r.byCall[e.CallID], e)
	if len(entries) > r.perCallCap {
		entries = entries[len(entries)-r.perCallCap:]
	}
	r.byCall[e.CallID] = entries
	return nil
}

func (r *MemoryRepo) ByCall(ctx context.Context, callID string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	entries := r.byCall[callID]
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}
