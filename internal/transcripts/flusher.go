package transcripts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/convlog"
	"voiceagent-platform/internal/events"
)

// Transcript is one call's durable record: metadata plus every turn in
// spoken order. Written exactly once, when the call ends.
type Transcript struct {
	ID          string            `json:"id"`
	CallID      string            `json:"call_id"`
	BusinessID  string            `json:"business_id"`
	UserID      string            `json:"user_id,omitempty"`
	CallerPhone string            `json:"caller_phone"`
	EndReason   string            `json:"end_reason,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     time.Time         `json:"ended_at"`
	Messages    []convlog.Message `json:"messages"`
}

// Sink persists a finished transcript. Save must be atomic: either the
// transcript row and all of its message rows land, or none do.
type Sink interface {
	Save(ctx context.Context, t Transcript) error
}

// Flusher moves finished conversations from the ephemeral log into the
// durable sink. One flush per call: a session becomes pending on
// call.started and is consumed by the first call.ended.
type Flusher struct {
	sink  Sink
	turns *convlog.Log
	calls *callstate.Store
	bus   events.Bus
	log   *slog.Logger
	clock func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewFlusher(sink Sink, turns *convlog.Log, calls *callstate.Store, bus events.Bus, log *slog.Logger) *Flusher {
	if log == nil {
		log = slog.Default()
	}
	return &Flusher{
		sink:    sink,
		turns:   turns,
		calls:   calls,
		bus:     bus,
		log:     log.With("component", "transcripts"),
		clock:   time.Now,
		pending: make(map[string]time.Time),
	}
}

// Start subscribes the flusher to the event stream.
func (f *Flusher) Start() error {
	if err := f.bus.Subscribe(events.TypeCallStarted, "transcripts", f.onCallStarted); err != nil {
		return err
	}
	return f.bus.Subscribe(events.TypeCallEnded, "transcripts", f.onCallEnded)
}

func (f *Flusher) onCallStarted(_ context.Context, e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[e.CallID]; ok {
		return
	}
	f.pending[e.CallID] = e.Timestamp
}

func (f *Flusher) onCallEnded(ctx context.Context, e events.Event) {
	var p events.CallEnded
	if err := e.Decode(&p); err != nil {
		f.log.Warn("call.ended payload unreadable", "call_id", e.CallID, "err", err)
		p = events.CallEnded{}
	}
	if err := f.Flush(ctx, e.CallID, p.Reason, e.Timestamp); err != nil {
		f.log.Error("transcript flush failed", "call_id", e.CallID, "err", err)
	}
}

// Pending reports whether the call has an unflushed session.
func (f *Flusher) Pending(callID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[callID]
	return ok
}

// Flush persists the call's conversation once. The pending session is
// consumed up front, so a second end event for the same call is an
// ErrNotPending, never a duplicate transcript. An empty conversation is a
// successful no-op: no row is written for a call nobody spoke on.
//
// A sink failure is reported, not retried; the ephemeral log is only
// cleared after the durable write succeeds.
func (f *Flusher) Flush(ctx context.Context, callID, reason string, endedAt time.Time) error {
	f.mu.Lock()
	startedAt, ok := f.pending[callID]
	if ok {
		delete(f.pending, callID)
	}
	f.mu.Unlock()
	if !ok {
		return &NotPendingError{CallID: callID}
	}

	msgs, err := f.turns.ReadAll(ctx, callID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		f.log.Info("empty conversation, no transcript written", "call_id", callID)
		return nil
	}

	t := Transcript{
		ID:        uuid.NewString(),
		CallID:    callID,
		EndReason: reason,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Messages:  msgs,
	}
	if t.EndedAt.IsZero() {
		t.EndedAt = f.clock().UTC()
	}
	if rec, err := f.calls.Get(ctx, callID); err == nil && rec != nil {
		t.BusinessID = rec.BusinessID
		t.UserID = rec.UserID
		t.CallerPhone = rec.CallerPhone
		if t.StartedAt.IsZero() {
			t.StartedAt = rec.StartedAt
		}
	}

	if err := f.sink.Save(ctx, t); err != nil {
		return err
	}
	if err := f.turns.Clear(ctx, callID); err != nil {
		f.log.Warn("flushed log not cleared", "call_id", callID, "err", err)
	}

	f.log.Info("transcript flushed",
		"call_id", callID, "transcript_id", t.ID, "messages", len(msgs))
	return nil
}

// NotPendingError reports an end event for a call with no open session,
// usually a duplicate end. Callers treat it as non-fatal.
type NotPendingError struct {
	CallID string
}

func (e *NotPendingError) Error() string {
	return "transcripts: no pending session for call " + e.CallID
}
