package audit

import "time"

// Entry is an immutable, append-only record of one coordination event
// observed on the bus for one call.
//
// Invariants:
// - Entries are never updated or deleted.
// - call_id is required; history is always scoped to a single call.
// - Capture is best-effort; call flows never block on audit failures.

type Entry struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	// Type is the bus event tag the entry was derived from.
	Type string `json:"type" db:"type"`

	// Summary is a short human-readable description for internal ops.
	Summary string `json:"summary,omitempty" db:"summary"`

	// Metadata carries the raw event payload as JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
