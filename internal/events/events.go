package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type is the closed set of event tags carried on the bus.
// Routing is a typed dispatch table keyed by Type; new event kinds are added
// here, never as free-form channel strings.
type Type string

const (
	TypeCallStarted    Type = "call.started"
	TypeCallMessage    Type = "call.message"
	TypeCallEnded      Type = "call.ended"
	TypeUserResolved   Type = "user.resolved"
	TypeQuoteCollected Type = "quote.collected"
)

// known reports whether t is part of the closed event set.
func (t Type) known() bool {
	switch t {
	case TypeCallStarted, TypeCallMessage, TypeCallEnded, TypeUserResolved, TypeQuoteCollected:
		return true
	default:
		return false
	}
}

// Event is one coordination fact about one call. Every event must be
// independently interpretable; consumers never rely on cross-event state
// beyond the started-before-anything-else ordering per call.
type Event struct {
	Type      Type            `json:"type"`
	CallID    string          `json:"call_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an event with a marshaled payload. A payload that fails to
// marshal is a programming error and is reported to the publisher.
func New(t Type, callID string, at time.Time, payload any) (Event, error) {
	e := Event{Type: t, CallID: callID, Timestamp: at.UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("events: marshal %s payload: %w", t, err)
		}
		e.Data = raw
	}
	return e, nil
}

// Decode unmarshals the event payload into out.
func (e Event) Decode(out any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("events: %s has no payload", e.Type)
	}
	return json.Unmarshal(e.Data, out)
}

// CallStarted is the payload of TypeCallStarted.
type CallStarted struct {
	BusinessID  string `json:"business_id"`
	CallerPhone string `json:"caller_phone"`
}

// CallMessage is the payload of TypeCallMessage.
type CallMessage struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// CallEnded is the payload of TypeCallEnded. Reason carries the socket close
// detail (e.g. "websocket_close:1000") or a lifecycle reason.
type CallEnded struct {
	Reason string `json:"reason"`
}

// UserResolved is the payload of TypeUserResolved.
type UserResolved struct {
	UserID              string `json:"user_id"`
	IsReturningCustomer bool   `json:"is_returning_customer"`
}

// QuoteCollected is the payload of TypeQuoteCollected.
type QuoteCollected struct {
	QuoteID string `json:"quote_id"`
	Service string `json:"service"`
}

func encodeEnvelope(e Event) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEnvelope(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("events: decode envelope: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("events: envelope missing type")
	}
	return e, nil
}
