package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/events"
	"voiceagent-platform/internal/resilience"
)

func newTestCalls() *callstate.Store {
	return callstate.NewStore(callstate.NewMemoryRepo(), resilience.NewBreaker("cs", resilience.Settings{}, nil), nil)
}

func publishStarted(t *testing.T, bus events.Bus, callID, phone string) {
	t.Helper()
	e, err := events.New(events.TypeCallStarted, callID, time.Now(), events.CallStarted{
		BusinessID:  "b1",
		CallerPhone: phone,
	})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	bus.Publish(context.Background(), e)
}

func TestNewCallerResolvesAsNotReturning(t *testing.T) {
	bus := events.NewMemoryBus(nil)
	calls := newTestCalls()
	svc := NewService(NewMemoryDirectory(), calls, bus, nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var resolved *events.UserResolved
	if err := bus.Subscribe(events.TypeUserResolved, "test", func(_ context.Context, e events.Event) {
		var p events.UserResolved
		if err := e.Decode(&p); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		resolved = &p
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ctx := context.Background()
	if _, err := calls.Create(ctx, "c2", "b1", "", "+15550001111"); err != nil {
		t.Fatalf("create call: %v", err)
	}
	publishStarted(t, bus, "c2", "+15550001111")

	if resolved == nil {
		t.Fatalf("expected user.resolved event")
	}
	if resolved.IsReturningCustomer {
		t.Fatalf("first call should resolve as new customer")
	}
	if resolved.UserID == "" {
		t.Fatalf("expected created identity id")
	}

	rec, _ := calls.Get(ctx, "c2")
	if rec.UserID != resolved.UserID {
		t.Fatalf("call record user %q != resolved %q", rec.UserID, resolved.UserID)
	}
}

func TestReturningCallerResolvesAsReturning(t *testing.T) {
	bus := events.NewMemoryBus(nil)
	calls := newTestCalls()
	dir := NewMemoryDirectory()
	svc := NewService(dir, calls, bus, nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Seed the directory with a prior call's identity.
	seeded, _, err := dir.FindOrCreate(context.Background(), "+15552223333", "b1", time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var resolved *events.UserResolved
	_ = bus.Subscribe(events.TypeUserResolved, "test", func(_ context.Context, e events.Event) {
		var p events.UserResolved
		_ = e.Decode(&p)
		resolved = &p
	})

	ctx := context.Background()
	if _, err := calls.Create(ctx, "c3", "b1", "", "+15552223333"); err != nil {
		t.Fatalf("create call: %v", err)
	}
	publishStarted(t, bus, "c3", "+15552223333")

	if resolved == nil || !resolved.IsReturningCustomer {
		t.Fatalf("expected returning customer, got %+v", resolved)
	}
	if resolved.UserID != seeded.ID {
		t.Fatalf("expected seeded identity %q, got %q", seeded.ID, resolved.UserID)
	}
}

func TestDirectoryFailureDefaultsToNewCustomer(t *testing.T) {
	bus := events.NewMemoryBus(nil)
	calls := newTestCalls()
	dir := NewMemoryDirectory()
	dir.Err = errors.New("directory down")
	svc := NewService(dir, calls, bus, nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var resolved *events.UserResolved
	_ = bus.Subscribe(events.TypeUserResolved, "test", func(_ context.Context, e events.Event) {
		var p events.UserResolved
		_ = e.Decode(&p)
		resolved = &p
	})

	if _, err := calls.Create(context.Background(), "c4", "b1", "", "+1555"); err != nil {
		t.Fatalf("create call: %v", err)
	}
	publishStarted(t, bus, "c4", "+1555")

	if resolved == nil {
		t.Fatalf("lookup failure must not block resolution")
	}
	if resolved.IsReturningCustomer {
		t.Fatalf("degraded resolution must default to new customer")
	}
	if resolved.UserID == "" {
		t.Fatalf("expected anonymous identity id")
	}
}
