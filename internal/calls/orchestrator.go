package calls

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/events"
	"voiceagent-platform/internal/knowledge"
	"voiceagent-platform/internal/telephony"
)

// Acceptor is the provider call-acceptance seam.
type Acceptor interface {
	Accept(ctx context.Context, callID string, cfg telephony.AcceptConfig) error
}

// SessionOpener starts the realtime AI session for an accepted call.
type SessionOpener interface {
	OpenSession(ctx context.Context, callID, instructions string) error
}

// Prompter assembles the agent instructions for one call. The text and
// templates live outside this system.
type Prompter interface {
	Instructions(ctx context.Context, businessID string, facts map[string]string) (string, error)
}

// StaticPrompter returns the same instructions for every call.
type StaticPrompter string

func (p StaticPrompter) Instructions(context.Context, string, map[string]string) (string, error) {
	return string(p), nil
}

// Options carries the per-deployment call settings.
type Options struct {
	Model    string
	Voice    string
	EndedTTL time.Duration
}

// Orchestrator drives a call's lifecycle: claim it, create its state,
// stage its knowledge, announce it, accept it at the provider and open
// the AI session. It also owns end-of-call cleanup.
type Orchestrator struct {
	guard     OwnershipGuard
	calls     *callstate.Store
	knowledge *knowledge.Cache
	bus       events.Bus
	acceptor  Acceptor
	sessions  SessionOpener
	prompter  Prompter
	opts      Options
	log       *slog.Logger
	clock     func() time.Time
}

func NewOrchestrator(guard OwnershipGuard, calls *callstate.Store, kn *knowledge.Cache, bus events.Bus, acceptor Acceptor, sessions SessionOpener, prompter Prompter, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if opts.EndedTTL <= 0 {
		opts.EndedTTL = time.Hour
	}
	return &Orchestrator{
		guard:     guard,
		calls:     calls,
		knowledge: kn,
		bus:       bus,
		acceptor:  acceptor,
		sessions:  sessions,
		prompter:  prompter,
		opts:      opts,
		log:       log.With("component", "calls"),
		clock:     time.Now,
	}
}

// Start subscribes end-of-call cleanup to the event stream.
func (o *Orchestrator) Start() error {
	return o.bus.Subscribe(events.TypeCallEnded, "calls", o.onCallEnded)
}

// Initiate runs the inbound-call startup sequence. A duplicate delivery
// of the same call ID is dropped at the ownership claim. The started
// event goes out before the session opens, so every reactor sees the
// call before its first message.
func (o *Orchestrator) Initiate(ctx context.Context, callID, businessID, callerPhone string) error {
	acquired, err := o.guard.Acquire(ctx, callID)
	if err != nil {
		return fmt.Errorf("calls: ownership claim %s: %w", callID, err)
	}
	if !acquired {
		o.log.Info("duplicate handoff ignored", "call_id", callID)
		return nil
	}

	if _, err := o.calls.Create(ctx, callID, businessID, "", callerPhone); err != nil {
		return fmt.Errorf("calls: create %s: %w", callID, err)
	}

	facts := map[string]string{}
	if n, err := o.knowledge.Preload(ctx, callID, businessID); err != nil {
		o.log.Warn("knowledge preload failed, call proceeds without facts", "call_id", callID, "err", err)
	} else if n > 0 {
		if facts, err = o.knowledge.All(ctx, callID); err != nil {
			o.log.Warn("knowledge read failed", "call_id", callID, "err", err)
			facts = map[string]string{}
		}
	}

	started, err := events.New(events.TypeCallStarted, callID, o.clock(), events.CallStarted{
		BusinessID:  businessID,
		CallerPhone: callerPhone,
	})
	if err != nil {
		return fmt.Errorf("calls: call.started build: %w", err)
	}
	o.bus.Publish(ctx, started)

	instructions, err := o.prompter.Instructions(ctx, businessID, facts)
	if err != nil {
		o.log.Warn("prompt assembly failed, using empty instructions", "call_id", callID, "err", err)
		instructions = ""
	}

	if err := o.acceptor.Accept(ctx, callID, telephony.AcceptConfig{
		Model:        o.opts.Model,
		Voice:        o.opts.Voice,
		Instructions: instructions,
	}); err != nil {
		o.abort(ctx, callID, "acceptance_failed")
		return fmt.Errorf("calls: accept %s: %w", callID, err)
	}

	if _, err := o.calls.SetStatus(ctx, callID, callstate.StatusActive); err != nil {
		o.log.Warn("status not recorded", "call_id", callID, "err", err)
	}

	if err := o.sessions.OpenSession(ctx, callID, instructions); err != nil {
		o.abort(ctx, callID, "session_open_failed")
		return fmt.Errorf("calls: open session %s: %w", callID, err)
	}

	o.log.Info("call initiated", "call_id", callID, "business_id", businessID)
	return nil
}

// abort publishes the end event for a call that never got going; the
// regular cleanup path takes it from there.
func (o *Orchestrator) abort(ctx context.Context, callID, reason string) {
	e, err := events.New(events.TypeCallEnded, callID, o.clock(), events.CallEnded{Reason: reason})
	if err != nil {
		o.log.Error("call.ended build failed", "call_id", callID, "err", err)
		return
	}
	o.bus.Publish(ctx, e)
}

// onCallEnded finishes a call: ended status plus TTL on the call's keys,
// knowledge dropped, ownership released. Safe to run twice; every step
// is a no-op the second time.
func (o *Orchestrator) onCallEnded(ctx context.Context, e events.Event) {
	callID := e.CallID
	if err := o.calls.End(ctx, callID, o.opts.EndedTTL); err != nil {
		o.log.Warn("call state not expired", "call_id", callID, "err", err)
	}
	if err := o.knowledge.Drop(ctx, callID); err != nil {
		o.log.Warn("knowledge not dropped", "call_id", callID, "err", err)
	}
	if err := o.guard.Release(ctx, callID); err != nil {
		o.log.Warn("ownership not released", "call_id", callID, "err", err)
	}
	o.log.Info("call cleaned up", "call_id", callID)
}
