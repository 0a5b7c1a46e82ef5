package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/convlog"
	"voiceagent-platform/internal/events"
)

const dialTimeout = 15 * time.Second

// Config points the manager at the realtime endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string

	TurnSummaryThreshold int
}

// Manager dials the realtime endpoint and tracks one live session per
// call. Sessions remove themselves when their socket closes.
type Manager struct {
	cfg   Config
	exec  ToolExecutor
	calls *callstate.Store
	turns *convlog.Log
	bus   events.Bus
	log   *slog.Logger

	dial func(ctx context.Context, url string, header http.Header) (Conn, error)

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config, exec ToolExecutor, calls *callstate.Store, turns *convlog.Log, bus events.Bus, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		exec:     exec,
		calls:    calls,
		turns:    turns,
		bus:      bus,
		log:      log.With("component", "realtime"),
		dial:     dialWebsocket,
		sessions: make(map[string]*Session),
	}
}

func dialWebsocket(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime: dial failed: %w", err)
	}
	return conn, nil
}

// Open dials the endpoint and starts the call's session. A second open
// for the same call is an error; one call owns exactly one socket.
func (m *Manager) Open(ctx context.Context, callID, instructions string) (*Session, error) {
	if callID == "" {
		return nil, errors.New("realtime: call_id is required")
	}

	m.mu.Lock()
	if _, ok := m.sessions[callID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("realtime: session already open for call %s", callID)
	}
	m.mu.Unlock()

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := m.cfg.BaseURL + "?model=" + m.cfg.Model
	conn, err := m.dial(ctx, url, header)
	if err != nil {
		return nil, err
	}

	s := NewSession(callID, conn, m.exec, m.calls, m.turns, m.bus, SessionOptions{
		Voice:                m.cfg.Voice,
		Instructions:         instructions,
		TurnSummaryThreshold: m.cfg.TurnSummaryThreshold,
	}, m.log)
	s.onClose = m.remove

	m.mu.Lock()
	m.sessions[callID] = s
	m.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	m.log.Info("realtime session opened", "call_id", callID)
	return s, nil
}

// OpenSession opens a session and keeps it in the registry, for callers
// that don't need the session handle itself.
func (m *Manager) OpenSession(ctx context.Context, callID, instructions string) error {
	_, err := m.Open(ctx, callID, instructions)
	return err
}

// Get returns the live session for a call, if any.
func (m *Manager) Get(callID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	return s, ok
}

// Close tears down a call's session. Unknown calls are a no-op.
func (m *Manager) Close(callID string) {
	m.mu.Lock()
	s, ok := m.sessions[callID]
	m.mu.Unlock()
	if ok {
		_ = s.Close()
	}
}

func (m *Manager) remove(callID string) {
	m.mu.Lock()
	delete(m.sessions, callID)
	m.mu.Unlock()
}
