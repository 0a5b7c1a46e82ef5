package convlog

import (
	"context"
	"sync"
)

// MemoryRepository is the in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu    sync.Mutex
	lists map[string][]Message
}

func NewMemoryRepo() *MemoryRepository {
	return &MemoryRepository{lists: make(map[string][]Message)}
}

func (m *MemoryRepository) Append(_ context.Context, callID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[callID] = append(m.lists[callID], msg)
	return nil
}

func (m *MemoryRepository) ReadAll(_ context.Context, callID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.lists[callID]))
	copy(out, m.lists[callID])
	return out, nil
}

func (m *MemoryRepository) Count(_ context.Context, callID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[callID])), nil
}

func (m *MemoryRepository) Clear(_ context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, callID)
	return nil
}
