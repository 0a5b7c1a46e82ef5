package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type recordingInitiator struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func (r *recordingInitiator) Initiate(_ context.Context, callID, businessID, callerPhone string) error {
	r.mu.Lock()
	r.calls = append(r.calls, callID+"|"+businessID+"|"+callerPhone)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
	return nil
}

type rejectVerifier struct{}

func (rejectVerifier) Verify(*http.Request) error { return errors.New("bad signature") }

func postHandoff(h WebhookHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/calls", h.HandleHandoff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/calls", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandoffAcceptedAndInitiated(t *testing.T) {
	init := &recordingInitiator{done: make(chan struct{})}
	h := WebhookHandler{Verifier: AllowAll{}, Initiator: init}

	w := postHandoff(h, `{
		"call_id": "c1",
		"sip_headers": [
			{"name": "X-Business-Id", "value": "biz-1"},
			{"name": "From", "value": "<sip:+15550001111@carrier>"}
		]
	}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	select {
	case <-init.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("initiator never invoked")
	}
	init.mu.Lock()
	defer init.mu.Unlock()
	if len(init.calls) != 1 || init.calls[0] != "c1|biz-1|+15550001111" {
		t.Fatalf("initiator calls = %v", init.calls)
	}
}

func TestHandoffRejectsBadSignature(t *testing.T) {
	h := WebhookHandler{Verifier: rejectVerifier{}, Initiator: &recordingInitiator{}}
	w := postHandoff(h, `{"call_id": "c1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandoffRejectsMissingCallID(t *testing.T) {
	h := WebhookHandler{Verifier: AllowAll{}, Initiator: &recordingInitiator{}}
	w := postHandoff(h, `{"sip_headers": []}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandoffRejectsIncompleteHeaders(t *testing.T) {
	h := WebhookHandler{Verifier: AllowAll{}, Initiator: &recordingInitiator{}}
	w := postHandoff(h, `{"call_id": "c1", "sip_headers": [{"name": "From", "value": "+1555"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
