package reporting

// Counter names a single per-business tally.
type Counter string

const (
	CounterCallsStarted    Counter = "calls_started"
	CounterCallsEnded      Counter = "calls_ended"
	CounterQuotesCollected Counter = "quotes_collected"
	CounterReturningCaller Counter = "returning_callers"
	CounterNewCaller       Counter = "new_callers"
)

// BusinessStats is the aggregated view for one business.
//
// Counters are monotonic; there is no reset operation. Retention and
// windowing belong to whatever sits behind the Repository.

type BusinessStats struct {
	BusinessID string `json:"business_id"`

	CallsStarted    int `json:"calls_started"`
	CallsEnded      int `json:"calls_ended"`
	QuotesCollected int `json:"quotes_collected"`

	ReturningCallers int `json:"returning_callers"`
	NewCallers       int `json:"new_callers"`
}
