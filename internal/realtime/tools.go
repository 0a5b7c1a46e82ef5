package realtime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"voiceagent-platform/internal/callstate"
)

// Tool names disclosed to the AI session. Disclosure is progressive: a
// tool appears once the call has the state it needs, and never disappears
// again for the rest of the call.
const (
	ToolSelectService   = "select_service"
	ToolGetQuote        = "get_quote"
	ToolSelectQuote     = "select_quote"
	ToolFinalizeBooking = "finalize_booking"
)

var toolSchemas = map[string]ToolSchema{
	ToolSelectService: {
		Type:        "function",
		Name:        ToolSelectService,
		Description: "Commit the caller to one service for this call.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"service": {"type": "string"}},
			"required": ["service"]
		}`),
	},
	ToolGetQuote: {
		Type:        "function",
		Name:        ToolGetQuote,
		Description: "Request a price quote for the selected service.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"details": {"type": "string"}},
			"required": []
		}`),
	},
	ToolSelectQuote: {
		Type:        "function",
		Name:        ToolSelectQuote,
		Description: "Choose one of the quotes already collected on this call.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"quote_id": {"type": "string"}},
			"required": ["quote_id"]
		}`),
	},
	ToolFinalizeBooking: {
		Type:        "function",
		Name:        ToolFinalizeBooking,
		Description: "Book the selected quote for the caller.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"notes": {"type": "string"}},
			"required": []
		}`),
	},
}

// PlanTools computes the tool set the call has earned so far. The result
// always contains everything already disclosed, so the set only grows.
func PlanTools(rec *callstate.Record) []string {
	out := make([]string, 0, 4)
	seen := make(map[string]bool, 4)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, t := range rec.ToolsAvailable {
		add(t)
	}
	add(ToolSelectService)
	if rec.SelectedService != "" {
		add(ToolGetQuote)
	}
	if len(rec.Quotes) >= 2 {
		add(ToolSelectQuote)
	}
	if rec.SelectedQuoteID != "" {
		add(ToolFinalizeBooking)
	}
	return out
}

// Schemas maps disclosed names to wire schemas, skipping unknown names.
func Schemas(names []string) []ToolSchema {
	out := make([]ToolSchema, 0, len(names))
	for _, n := range names {
		if s, ok := toolSchemas[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ToolsHash fingerprints a tool set independent of order. Matching hashes
// mean the remote session already has this exact set and no update is
// needed.
func ToolsHash(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}
