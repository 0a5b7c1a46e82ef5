package callstate

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryRepository is the in-memory Repository used by unit tests.
// Records are copied through JSON so tests observe the same value semantics
// as the redis repository.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string][]byte
	ttls    map[string]time.Duration
}

func NewMemoryRepo() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *MemoryRepository) Create(_ context.Context, rec Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.CallID]; exists {
		return false, nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	m.records[rec.CallID] = raw
	return true, nil
}

func (m *MemoryRepository) Get(_ context.Context, callID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.records[callID]
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *MemoryRepository) Put(_ context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.CallID] = raw
	return nil
}

func (m *MemoryRepository) Expire(_ context.Context, callID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[callID] = ttl
	return nil
}

// TTL reports the expiry recorded for a call (tests only).
func (m *MemoryRepository) TTL(callID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[callID]
}
