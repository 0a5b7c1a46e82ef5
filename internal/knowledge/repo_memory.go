package knowledge

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory fact store for tests.
type MemoryRepository struct {
	mu    sync.Mutex
	Err   error
	calls map[string]map[string]string
}

func NewMemoryRepo() *MemoryRepository {
	return &MemoryRepository{calls: make(map[string]map[string]string)}
}

func (r *MemoryRepository) Preload(_ context.Context, callID string, facts map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	set, ok := r.calls[callID]
	if !ok {
		set = make(map[string]string, len(facts))
		r.calls[callID] = set
	}
	for k, v := range facts {
		set[k] = v
	}
	return nil
}

func (r *MemoryRepository) Fact(_ context.Context, callID, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", false, r.Err
	}
	val, ok := r.calls[callID][key]
	return val, ok, nil
}

func (r *MemoryRepository) All(_ context.Context, callID string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make(map[string]string, len(r.calls[callID]))
	for k, v := range r.calls[callID] {
		out[k] = v
	}
	return out, nil
}

func (r *MemoryRepository) Drop(_ context.Context, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.calls, callID)
	return nil
}
