package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/convlog"
	"voiceagent-platform/internal/events"
)

// Conn is the socket seam: gorilla's *websocket.Conn satisfies it, tests
// substitute a scripted fake.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// ToolResult is what the tool facade reports back for one function call.
type ToolResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ToolExecutor runs the booking-domain side of a function call. The
// coordinator only relays; it never computes prices or bookings itself.
type ToolExecutor interface {
	Execute(ctx context.Context, callID, name string, args map[string]any) (ToolResult, error)
}

// SessionOptions tunes one session's behavior.
type SessionOptions struct {
	Voice        string
	Instructions string

	// TurnSummaryThreshold is the number of assistant turns before the
	// remote context is compacted behind a summary.
	TurnSummaryThreshold int
}

// seenCap bounds the per-call correlation-ID dedupe set. A call never
// produces anywhere near this many function calls; the bound only guards
// a misbehaving peer.
const seenCap = 256

// rawWindow is how much of a malformed payload gets logged.
const rawWindow = 160

// Session coordinates one realtime AI socket for one call. It translates
// protocol frames into conversation-log appends, call-state mutations and
// bus events, and pushes tool disclosure back out as the call progresses.
//
// A session never reconnects. When the socket goes, the voice channel is
// gone, so cleanup publishes call.ended and the session is done.
type Session struct {
	callID string
	conn   Conn
	exec   ToolExecutor
	calls  *callstate.Store
	turns  *convlog.Log
	bus    events.Bus
	opts   SessionOptions
	log    *slog.Logger
	clock  func() time.Time

	// onClose runs once after cleanup, for registry removal.
	onClose func(callID string)

	writeMu sync.Mutex

	mu             sync.Mutex
	seen           map[string]bool
	seenOrder      []string
	batchInFlight  bool
	assistantTurns int
	itemIDs        []string
	lastToolsHash  string

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(callID string, conn Conn, exec ToolExecutor, calls *callstate.Store, turns *convlog.Log, bus events.Bus, opts SessionOptions, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	if opts.TurnSummaryThreshold <= 0 {
		opts.TurnSummaryThreshold = 6
	}
	return &Session{
		callID: callID,
		conn:   conn,
		exec:   exec,
		calls:  calls,
		turns:  turns,
		bus:    bus,
		opts:   opts,
		log:    log.With("component", "realtime", "call_id", callID),
		clock:  time.Now,
		seen:   make(map[string]bool),
		done:   make(chan struct{}),
	}
}

// Start pushes the session's initial configuration and asks for the
// greeting, then consumes the socket until it closes.
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.calls.SetSocketStatus(ctx, s.callID, callstate.SocketConnected); err != nil {
		s.log.Warn("socket status not recorded", "err", err)
	}
	if err := s.pushTools(ctx); err != nil {
		s.cleanup(ctx, "session_setup_failed")
		return err
	}
	if err := s.writeJSON(responseCreateFrame{Type: frameResponse}); err != nil {
		s.cleanup(ctx, "session_setup_failed")
		return fmt.Errorf("realtime: greeting request: %w", err)
	}

	go s.readLoop(ctx)
	return nil
}

// Done closes when the session has finished cleanup.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close tears the socket down; cleanup runs through the read loop's exit.
func (s *Session) Close() error { return s.conn.Close() }

func (s *Session) readLoop(ctx context.Context) {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.cleanup(ctx, closeReason(err))
			return
		}
		s.handleFrame(ctx, payload)
	}
}

// closeReason renders a socket failure as an end-of-call reason. Close
// codes stay visible so operators can tell a remote hangup from a network
// fault.
func closeReason(err error) string {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return fmt.Sprintf("websocket_close:%d", ce.Code)
	}
	return "websocket_close:abnormal"
}

func (s *Session) handleFrame(ctx context.Context, payload []byte) {
	var f inboundFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		s.log.Warn("unreadable frame skipped", "err", err, "raw", clip(payload))
		return
	}

	switch f.Type {
	case frameAssistantTranscript:
		s.recordTurn(ctx, convlog.RoleAssistant, f.Transcript, f.ItemID)
		s.maybeSummarize(ctx)
	case frameUserTranscript:
		s.recordTurn(ctx, convlog.RoleUser, f.Transcript, f.ItemID)
	case frameFunctionCallArgsDone:
		s.handleFunctionCall(ctx, f)
	case frameError:
		msg := ""
		if f.Error != nil {
			msg = f.Error.Message
		}
		s.log.Warn("protocol error from remote", "message", msg)
	case frameSessionCreated, frameSessionUpdated, frameResponseCreated, frameResponseDone:
		// Lifecycle acknowledgements; nothing to coordinate.
	default:
		// Audio deltas and other frames this coordinator does not act on.
	}
}

func (s *Session) recordTurn(ctx context.Context, role convlog.Role, content, itemID string) {
	if content == "" {
		return
	}
	m := convlog.Message{Role: role, Content: content, CorrelationID: itemID}
	if err := s.turns.Append(ctx, s.callID, m); err != nil {
		s.log.Warn("turn not recorded", "role", role, "err", err)
	}

	s.mu.Lock()
	if itemID != "" {
		s.itemIDs = append(s.itemIDs, itemID)
	}
	if role == convlog.RoleAssistant {
		s.assistantTurns++
	}
	s.mu.Unlock()

	e, err := events.New(events.TypeCallMessage, s.callID, s.clock(), events.CallMessage{
		MessageID: itemID,
		Role:      string(role),
		Content:   content,
	})
	if err != nil {
		s.log.Warn("call.message event build failed", "err", err)
		return
	}
	s.bus.Publish(ctx, e)
}

func (s *Session) handleFunctionCall(ctx context.Context, f inboundFrame) {
	if f.CallID == "" || f.Name == "" {
		s.log.Warn("function call frame missing correlation or name", "raw_name", f.Name)
		return
	}

	s.mu.Lock()
	if s.seen[f.CallID] {
		s.mu.Unlock()
		s.log.Info("duplicate function call skipped", "correlation_id", f.CallID, "tool", f.Name)
		return
	}
	s.remember(f.CallID)
	if s.batchInFlight {
		s.mu.Unlock()
		s.log.Warn("function call rejected, batch in flight", "correlation_id", f.CallID, "tool", f.Name)
		s.replyResult(f.CallID, ToolResult{
			Success: false,
			Message: "another operation is still in progress, try again in a moment",
		})
		return
	}
	s.batchInFlight = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.batchInFlight = false
			s.mu.Unlock()
		}()
		s.executeCall(ctx, f)
	}()
}

func (s *Session) executeCall(ctx context.Context, f inboundFrame) {
	var args map[string]any
	if f.Arguments != "" {
		if err := json.Unmarshal([]byte(f.Arguments), &args); err != nil {
			s.log.Warn("malformed function arguments",
				"correlation_id", f.CallID, "tool", f.Name, "err", err, "raw", clip([]byte(f.Arguments)))
			s.replyResult(f.CallID, ToolResult{
				Success: false,
				Message: "the arguments could not be parsed, please restate the request",
			})
			return
		}
	}

	result, err := s.exec.Execute(ctx, s.callID, f.Name, args)
	if err != nil {
		s.log.Error("tool execution failed", "tool", f.Name, "err", err)
		result = ToolResult{Success: false, Message: "that action failed, please try again"}
	}
	s.replyResult(f.CallID, result)

	if result.Success {
		s.refreshTools(ctx)
	}
}

func (s *Session) replyResult(correlationID string, result ToolResult) {
	frame, err := newFunctionOutput(correlationID, result)
	if err != nil {
		s.log.Error("function output encode failed", "err", err)
		return
	}
	if err := s.writeJSON(frame); err != nil {
		s.log.Warn("function output not sent", "err", err)
		return
	}
	if err := s.writeJSON(responseCreateFrame{Type: frameResponse}); err != nil {
		s.log.Warn("response request not sent", "err", err)
	}
}

// refreshTools recomputes the disclosed tool set from the call record and
// pushes a session.update when it actually changed.
func (s *Session) refreshTools(ctx context.Context) {
	if err := s.pushTools(ctx); err != nil {
		s.log.Warn("tool update not pushed", "err", err)
	}
}

func (s *Session) pushTools(ctx context.Context) error {
	rec, err := s.calls.Get(ctx, s.callID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("realtime: call %s unknown", s.callID)
	}

	names := PlanTools(rec)
	if _, err := s.calls.AddTools(ctx, s.callID, names...); err != nil {
		s.log.Warn("tool disclosure not recorded", "err", err)
	}

	hash := ToolsHash(names)
	s.mu.Lock()
	unchanged := hash == s.lastToolsHash
	if !unchanged {
		s.lastToolsHash = hash
	}
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	return s.writeJSON(sessionUpdateFrame{
		Type: frameSessionUpdate,
		Session: SessionConfig{
			Instructions: s.opts.Instructions,
			Voice:        s.opts.Voice,
			Tools:        Schemas(names),
		},
	})
}

// maybeSummarize compacts the remote context once enough assistant turns
// have accumulated: a short system summary goes in, the tracked older
// items are deleted remotely, and the counter resets. The conversation
// log keeps the full history either way.
func (s *Session) maybeSummarize(ctx context.Context) {
	s.mu.Lock()
	if s.assistantTurns < s.opts.TurnSummaryThreshold {
		s.mu.Unlock()
		return
	}
	older := s.itemIDs
	s.itemIDs = nil
	s.assistantTurns = 0
	s.mu.Unlock()

	summary := s.buildSummary(ctx)
	if err := s.writeJSON(newSystemMessage(summary)); err != nil {
		s.log.Warn("summary not injected", "err", err)
		return
	}
	for _, id := range older {
		if err := s.writeJSON(itemDeleteFrame{Type: frameItemDelete, ItemID: id}); err != nil {
			s.log.Warn("remote item not deleted", "item_id", id, "err", err)
		}
	}
	s.log.Info("remote context compacted", "items_deleted", len(older))
}

func (s *Session) buildSummary(ctx context.Context) string {
	rec, err := s.calls.Get(ctx, s.callID)
	if err != nil || rec == nil {
		return "Conversation continues. Earlier turns were truncated for length."
	}
	out := "Summary of the call so far:"
	if rec.SelectedService != "" {
		out += " the caller chose the " + rec.SelectedService + " service."
	} else {
		out += " no service has been chosen yet."
	}
	if n := len(rec.Quotes); n > 0 {
		out += fmt.Sprintf(" %d quote(s) have been collected.", n)
	}
	if rec.SelectedQuoteID != "" {
		out += " A quote has been selected."
	}
	return out
}

// remember adds a correlation ID to the dedupe set, evicting the oldest
// entry once the bound is hit. Caller holds s.mu.
func (s *Session) remember(id string) {
	if len(s.seenOrder) >= seenCap {
		oldest := s.seenOrder[0]
		s.seenOrder = s.seenOrder[1:]
		delete(s.seen, oldest)
	}
	s.seen[id] = true
	s.seenOrder = append(s.seenOrder, id)
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) cleanup(ctx context.Context, reason string) {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		if _, err := s.calls.SetSocketStatus(ctx, s.callID, callstate.SocketDisconnected); err != nil {
			s.log.Warn("socket status not recorded", "err", err)
		}

		e, err := events.New(events.TypeCallEnded, s.callID, s.clock(), events.CallEnded{Reason: reason})
		if err != nil {
			s.log.Error("call.ended event build failed", "err", err)
		} else {
			s.bus.Publish(ctx, e)
		}
		s.log.Info("session closed", "reason", reason)

		if s.onClose != nil {
			s.onClose(s.callID)
		}
		close(s.done)
	})
}

func clip(raw []byte) string {
	if len(raw) > rawWindow {
		return string(raw[:rawWindow]) + "..."
	}
	return string(raw)
}
