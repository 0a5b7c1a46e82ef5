package callstate

import "time"

// Status is a call's lifecycle position. Transitions are forward-only:
// connecting -> active -> ended. A backward write is ignored.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusEnded      Status = "ended"
)

func (s Status) rank() int {
	switch s {
	case StatusConnecting:
		return 0
	case StatusActive:
		return 1
	case StatusEnded:
		return 2
	default:
		return -1
	}
}

// SocketStatus tracks the realtime AI socket independently of the call's
// business status.
type SocketStatus string

const (
	SocketConnecting   SocketStatus = "connecting"
	SocketConnected    SocketStatus = "connected"
	SocketDisconnected SocketStatus = "disconnected"
)

// Quote is one priced offer collected during a call. Pricing computation
// happens behind the tool facade; this record only coordinates selection.
type Quote struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is the single source of truth for one call. No call ID is reused;
// the record exists from first event until TTL expiry after the call ends.
type Record struct {
	CallID      string `json:"call_id"`
	BusinessID  string `json:"business_id"`
	CallerPhone string `json:"caller_phone"`

	// UserID stays empty until identity resolution completes.
	UserID string `json:"user_id,omitempty"`

	Status       Status       `json:"status"`
	SocketStatus SocketStatus `json:"socket_status"`

	// SelectedService is the single service the caller has committed to.
	// Mutually exclusive per call; last write wins.
	SelectedService string `json:"selected_service,omitempty"`

	// Quotes is additive: new quote IDs never overwrite old ones. Selection
	// is a separate, explicit mutation; nothing auto-selects.
	Quotes          map[string]Quote `json:"quotes,omitempty"`
	SelectedQuoteID string           `json:"selected_quote_id,omitempty"`

	// ToolsAvailable grows monotonically during a call. Tools are added,
	// never removed, so an in-flight protocol negotiation cannot break.
	ToolsAvailable []string `json:"tools_available,omitempty"`

	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// HasTool reports whether name has already been disclosed.
func (r *Record) HasTool(name string) bool {
	for _, t := range r.ToolsAvailable {
		if t == name {
			return true
		}
	}
	return false
}
