package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/convlog"
	"voiceagent-platform/internal/events"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/internal/resilience"
)

func newHandlers(t *testing.T) Handlers {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewMemoryBus(log)
	return Handlers{
		Calls:   callstate.NewStore(callstate.NewMemoryRepo(), resilience.NewBreaker("cs", resilience.Settings{}, nil), nil),
		Turns:   convlog.NewLog(convlog.NewMemoryRepo(), resilience.NewBreaker("cl", resilience.Settings{}, nil), nil),
		History: audit.NewService(audit.NewMemoryRepo(), bus, log),
		Stats:   reporting.NewService(reporting.NewMemoryRepo(), bus, log),
	}
}

func serve(h Handlers, method, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/calls/:call_id", h.GetCall)
	r.GET("/v1/calls/:call_id/messages/count", h.GetCallMessageCount)
	r.GET("/v1/calls/:call_id/events", h.GetCallEvents)
	r.GET("/v1/businesses/:business_id/stats", h.GetBusinessStats)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetCallReturnsRecord(t *testing.T) {
	h := newHandlers(t)
	if _, err := h.Calls.Create(context.Background(), "c1", "b1", "", "+1555"); err != nil {
		t.Fatalf("create: %v", err)
	}

	w := serve(h, http.MethodGet, "/v1/calls/c1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var rec callstate.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.CallID != "c1" || rec.Status != callstate.StatusConnecting {
		t.Fatalf("record = %+v", rec)
	}
}

func TestGetCallUnknownIs404(t *testing.T) {
	w := serve(newHandlers(t), http.MethodGet, "/v1/calls/ghost")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMessageCount(t *testing.T) {
	h := newHandlers(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := h.Turns.Append(ctx, "c1", convlog.Message{Role: convlog.RoleUser, Content: "hi"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	w := serve(h, http.MethodGet, "/v1/calls/c1/messages/count")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		MessageCount int64 `json:"message_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.MessageCount != 3 {
		t.Fatalf("count = %d", out.MessageCount)
	}
}

func TestGetCallEvents(t *testing.T) {
	h := newHandlers(t)
	ctx := context.Background()
	for _, typ := range []string{"call.started", "call.ended"} {
		if err := h.History.Append(ctx, audit.Entry{CallID: "c1", Type: typ}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	w := serve(h, http.MethodGet, "/v1/calls/c1/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		Events []audit.Entry `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Events) != 2 || out.Events[0].Type != "call.started" {
		t.Fatalf("events = %+v", out.Events)
	}
}

func TestGetBusinessStats(t *testing.T) {
	h := newHandlers(t)

	w := serve(h, http.MethodGet, "/v1/businesses/b1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out reporting.BusinessStats
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.BusinessID != "b1" || out.CallsStarted != 0 {
		t.Fatalf("stats = %+v", out)
	}
}
