package transcripts

import (
	"context"
	"sync"
)

// MemorySink keeps saved transcripts in memory. Test double.
type MemorySink struct {
	mu    sync.Mutex
	Err   error
	saved []Transcript
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Save(_ context.Context, t Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.saved = append(s.saved, t)
	return nil
}

// Saved returns a copy of everything saved so far.
func (s *MemorySink) Saved() []Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transcript, len(s.saved))
	copy(out, s.saved)
	return out
}
