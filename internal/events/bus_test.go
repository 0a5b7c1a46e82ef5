package events

import (
	"context"
	"testing"
	"time"
)

func TestNewEventCarriesPayload(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	e, err := New(TypeCallStarted, "c1", now, CallStarted{BusinessID: "b1", CallerPhone: "+15550001111"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var p CallStarted
	if err := e.Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.BusinessID != "b1" || p.CallerPhone != "+15550001111" {
		t.Fatalf("payload round trip mismatch: %+v", p)
	}
}

func TestEnvelopeCodec(t *testing.T) {
	e, err := New(TypeCallEnded, "c2", time.Now(), CallEnded{Reason: "websocket_close:1000"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	raw, err := encodeEnvelope(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != TypeCallEnded || out.CallID != "c2" {
		t.Fatalf("envelope mismatch: %+v", out)
	}
}

func TestDecodeEnvelopeRejectsMissingType(t *testing.T) {
	if _, err := decodeEnvelope([]byte(`{"call_id":"c1"}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := decodeEnvelope([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed envelope")
	}
}

func TestMemoryBusRejectsUnknownType(t *testing.T) {
	bus := NewMemoryBus(nil)
	if err := bus.Subscribe(Type("random.channel"), "s1", func(context.Context, Event) {}); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestMemoryBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)

	var got []string
	sub := func(name string) Handler {
		return func(_ context.Context, e Event) {
			got = append(got, name+":"+string(e.Type))
		}
	}
	if err := bus.Subscribe(TypeCallStarted, "a", sub("a")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(TypeCallStarted, "b", sub("b")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// Subscriber for a different type must not see the event.
	if err := bus.Subscribe(TypeCallEnded, "c", sub("c")); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.Publish(context.Background(), Event{Type: TypeCallStarted, CallID: "c1", Timestamp: time.Now()})

	if len(got) != 2 || got[0] != "a:call.started" || got[1] != "b:call.started" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestMemoryBusPanickingHandlerDoesNotSuppressOthers(t *testing.T) {
	bus := NewMemoryBus(nil)

	delivered := false
	if err := bus.Subscribe(TypeCallMessage, "bad", func(context.Context, Event) {
		panic("boom")
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(TypeCallMessage, "good", func(context.Context, Event) {
		delivered = true
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.Publish(context.Background(), Event{Type: TypeCallMessage, CallID: "c1", Timestamp: time.Now()})

	if !delivered {
		t.Fatalf("second handler should still run after first panics")
	}
}

func TestMemoryBusPreservesPublisherOrder(t *testing.T) {
	bus := NewMemoryBus(nil)

	var order []Type
	record := func(_ context.Context, e Event) { order = append(order, e.Type) }
	for _, typ := range []Type{TypeCallStarted, TypeCallMessage, TypeCallEnded} {
		if err := bus.Subscribe(typ, "rec", record); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	ctx := context.Background()
	bus.Publish(ctx, Event{Type: TypeCallStarted, CallID: "c1"})
	bus.Publish(ctx, Event{Type: TypeCallMessage, CallID: "c1"})
	bus.Publish(ctx, Event{Type: TypeCallEnded, CallID: "c1"})

	want := []Type{TypeCallStarted, TypeCallMessage, TypeCallEnded}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}
