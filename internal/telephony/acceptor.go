package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// AcceptConfig is the session configuration sent with call acceptance.
type AcceptConfig struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

type acceptRequest struct {
	CallID string `json:"call_id"`
	AcceptConfig
}

// Acceptor makes the one outbound REST call that accepts an inbound call
// at the provider. Two endpoint shapes exist in the wild; a not-found on
// the primary is retried once against the alternate before failing.
type Acceptor struct {
	client      *http.Client
	apiKey      string
	acceptURL   string
	fallbackURL string
	log         *slog.Logger
}

func NewAcceptor(apiKey, acceptURL, fallbackURL string, log *slog.Logger) *Acceptor {
	if log == nil {
		log = slog.Default()
	}
	return &Acceptor{
		client:      &http.Client{Timeout: 10 * time.Second},
		apiKey:      apiKey,
		acceptURL:   acceptURL,
		fallbackURL: fallbackURL,
		log:         log.With("component", "telephony"),
	}
}

// Accept tells the provider to bridge the call. acceptURL may carry a
// {call_id} placeholder; the fallback shape takes the ID in the body only.
func (a *Acceptor) Accept(ctx context.Context, callID string, cfg AcceptConfig) error {
	body := acceptRequest{CallID: callID, AcceptConfig: cfg}

	url := strings.ReplaceAll(a.acceptURL, "{call_id}", callID)
	status, err := a.post(ctx, url, body)
	if err != nil {
		return fmt.Errorf("telephony: accept %s: %w", callID, err)
	}
	if status == http.StatusNotFound && a.fallbackURL != "" {
		a.log.Warn("accept endpoint not found, trying alternate", "call_id", callID)
		status, err = a.post(ctx, a.fallbackURL, body)
		if err != nil {
			return fmt.Errorf("telephony: accept %s (alternate): %w", callID, err)
		}
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("telephony: accept %s: provider returned %d", callID, status)
	}
	return nil
}

func (a *Acceptor) post(ctx context.Context, url string, body any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
