package realtime

import (
	"testing"

	"voiceagent-platform/internal/callstate"
)

func hasTool(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestToolPlanGrowsWithCallProgress(t *testing.T) {
	rec := &callstate.Record{CallID: "c1", Quotes: map[string]callstate.Quote{}}

	names := PlanTools(rec)
	if len(names) != 1 || names[0] != ToolSelectService {
		t.Fatalf("initial set = %v, want [%s]", names, ToolSelectService)
	}

	rec.SelectedService = "plumbing"
	rec.ToolsAvailable = names
	names = PlanTools(rec)
	if len(names) != 2 || !hasTool(names, ToolGetQuote) {
		t.Fatalf("after service selection = %v, want exactly get_quote added", names)
	}

	rec.Quotes["q1"] = callstate.Quote{ID: "q1"}
	rec.ToolsAvailable = names
	names = PlanTools(rec)
	if hasTool(names, ToolSelectQuote) {
		t.Fatalf("select_quote disclosed with a single quote: %v", names)
	}

	rec.Quotes["q2"] = callstate.Quote{ID: "q2"}
	names = PlanTools(rec)
	if !hasTool(names, ToolSelectQuote) {
		t.Fatalf("select_quote missing with two quotes: %v", names)
	}

	rec.SelectedQuoteID = "q1"
	rec.ToolsAvailable = names
	names = PlanTools(rec)
	if !hasTool(names, ToolFinalizeBooking) {
		t.Fatalf("finalize_booking missing after quote selection: %v", names)
	}
}

func TestToolPlanNeverShrinks(t *testing.T) {
	// Disclosed tools survive even when the state that earned them is gone.
	rec := &callstate.Record{
		CallID:         "c1",
		ToolsAvailable: []string{ToolSelectService, ToolGetQuote, ToolSelectQuote},
	}
	names := PlanTools(rec)
	for _, want := range rec.ToolsAvailable {
		if !hasTool(names, want) {
			t.Fatalf("previously disclosed %s dropped: %v", want, names)
		}
	}
}

func TestToolsHashIgnoresOrder(t *testing.T) {
	a := ToolsHash([]string{ToolGetQuote, ToolSelectService})
	b := ToolsHash([]string{ToolSelectService, ToolGetQuote})
	if a != b {
		t.Fatalf("hash depends on order")
	}
	c := ToolsHash([]string{ToolSelectService})
	if a == c {
		t.Fatalf("different sets share a hash")
	}
}

func TestSchemasSkipUnknownNames(t *testing.T) {
	out := Schemas([]string{ToolSelectService, "made_up"})
	if len(out) != 1 || out[0].Name != ToolSelectService {
		t.Fatalf("schemas = %+v", out)
	}
}
