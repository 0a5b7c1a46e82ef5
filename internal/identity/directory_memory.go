package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is the in-memory Directory used by unit tests.
type MemoryDirectory struct {
	mu  sync.Mutex
	ids map[string]Identity // key: businessID + "|" + phone

	// Err, when set, makes every lookup fail (tests the degraded path).
	Err error
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{ids: make(map[string]Identity)}
}

func (d *MemoryDirectory) FindOrCreate(_ context.Context, phone, businessID string, now time.Time) (Identity, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return Identity{}, false, d.Err
	}

	key := businessID + "|" + phone
	if id, ok := d.ids[key]; ok {
		return id, true, nil
	}
	id := Identity{
		ID:          uuid.NewString(),
		BusinessID:  businessID,
		PhoneNumber: phone,
		CreatedAt:   now,
	}
	d.ids[key] = id
	return id, false, nil
}
