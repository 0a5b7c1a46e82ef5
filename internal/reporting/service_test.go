package reporting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"voiceagent-platform/internal/events"
)

func testService(t *testing.T) (*Service, *MemoryRepo, *events.MemoryBus) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewMemoryRepo()
	bus := events.NewMemoryBus(log)
	svc := NewService(repo, bus, log)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc, repo, bus
}

func publish(t *testing.T, bus *events.MemoryBus, typ events.Type, callID string, payload any) {
	t.Helper()
	e, err := events.New(typ, callID, time.Now(), payload)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	bus.Publish(context.Background(), e)
}

func TestReporting_TalliesCallLifecyclePerBusiness(t *testing.T) {
	svc, _, bus := testService(t)

	publish(t, bus, events.TypeCallStarted, "c1", events.CallStarted{BusinessID: "b1"})
	publish(t, bus, events.TypeUserResolved, "c1", events.UserResolved{UserID: "u1", IsReturningCustomer: true})
	publish(t, bus, events.TypeQuoteCollected, "c1", events.QuoteCollected{QuoteID: "q1", Service: "plumbing"})
	publish(t, bus, events.TypeQuoteCollected, "c1", events.QuoteCollected{QuoteID: "q2", Service: "plumbing"})
	publish(t, bus, events.TypeCallEnded, "c1", events.CallEnded{Reason: "websocket_close:1000"})

	publish(t, bus, events.TypeCallStarted, "c2", events.CallStarted{BusinessID: "b2"})
	publish(t, bus, events.TypeUserResolved, "c2", events.UserResolved{UserID: "u2", IsReturningCustomer: false})

	got, err := svc.Summary(context.Background(), "b1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := BusinessStats{BusinessID: "b1", CallsStarted: 1, CallsEnded: 1, QuotesCollected: 2, ReturningCallers: 1}
	if got != want {
		t.Fatalf("b1 stats = %+v, want %+v", got, want)
	}

	got, err = svc.Summary(context.Background(), "b2")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.CallsStarted != 1 || got.NewCallers != 1 || got.CallsEnded != 0 {
		t.Fatalf("b2 stats = %+v", got)
	}
}

func TestReporting_EndWithoutStartIsIgnored(t *testing.T) {
	svc, _, bus := testService(t)

	publish(t, bus, events.TypeCallEnded, "ghost", events.CallEnded{Reason: "socket_error"})

	got, err := svc.Summary(context.Background(), "b1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.CallsEnded != 0 {
		t.Fatalf("expected no ended tally, got %+v", got)
	}
}

func TestReporting_CallIndexClearedAfterEnd(t *testing.T) {
	svc, _, bus := testService(t)

	publish(t, bus, events.TypeCallStarted, "c1", events.CallStarted{BusinessID: "b1"})
	publish(t, bus, events.TypeCallEnded, "c1", events.CallEnded{Reason: "done"})
	// late duplicate end must not count again
	publish(t, bus, events.TypeCallEnded, "c1", events.CallEnded{Reason: "done"})

	got, err := svc.Summary(context.Background(), "b1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.CallsEnded != 1 {
		t.Fatalf("expected 1 ended call, got %d", got.CallsEnded)
	}
}

func TestReporting_SummaryRequiresBusinessID(t *testing.T) {
	svc, _, _ := testService(t)

	if _, err := svc.Summary(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestReporting_RepoFailureIsDropped(t *testing.T) {
	svc, repo, bus := testService(t)
	repo.Err = errors.New("store down")

	publish(t, bus, events.TypeCallStarted, "c1", events.CallStarted{BusinessID: "b1"})

	repo.Err = nil
	got, err := svc.Summary(context.Background(), "b1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.CallsStarted != 0 {
		t.Fatalf("expected dropped increment, got %+v", got)
	}
}
