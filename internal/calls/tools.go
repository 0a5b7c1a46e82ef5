package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voiceagent-platform/internal/callstate"
	"voiceagent-platform/internal/events"
	"voiceagent-platform/internal/realtime"
)

// QuoteSource prices a service request. Pricing lives outside this
// system; only the resulting quote is coordinated here.
type QuoteSource interface {
	Quote(ctx context.Context, businessID, service, details string) (callstate.Quote, error)
}

// Booker commits the selected quote. External collaborator.
type Booker interface {
	Book(ctx context.Context, callID, quoteID string) error
}

// UnpricedQuotes is the default QuoteSource for deployments without a
// pricing backend. Every request is declined.
type UnpricedQuotes struct{}

func (UnpricedQuotes) Quote(context.Context, string, string, string) (callstate.Quote, error) {
	return callstate.Quote{}, errors.New("calls: no pricing backend configured")
}

// NoopBooker accepts every booking without doing anything. Deployments
// with a real scheduler replace it.
type NoopBooker struct{}

func (NoopBooker) Book(context.Context, string, string) error { return nil }

// ToolFacade executes the AI session's function calls: it delegates the
// business decision to the external collaborators and records the
// outcome on the call.
type ToolFacade struct {
	calls  *callstate.Store
	quotes QuoteSource
	booker Booker
	bus    events.Bus
	log    *slog.Logger
	clock  func() time.Time
}

func NewToolFacade(calls *callstate.Store, quotes QuoteSource, booker Booker, bus events.Bus, log *slog.Logger) *ToolFacade {
	if log == nil {
		log = slog.Default()
	}
	return &ToolFacade{
		calls:  calls,
		quotes: quotes,
		booker: booker,
		bus:    bus,
		log:    log.With("component", "tools"),
		clock:  time.Now,
	}
}

func (f *ToolFacade) Execute(ctx context.Context, callID, name string, args map[string]any) (realtime.ToolResult, error) {
	switch name {
	case realtime.ToolSelectService:
		return f.selectService(ctx, callID, args)
	case realtime.ToolGetQuote:
		return f.getQuote(ctx, callID, args)
	case realtime.ToolSelectQuote:
		return f.selectQuote(ctx, callID, args)
	case realtime.ToolFinalizeBooking:
		return f.finalizeBooking(ctx, callID)
	default:
		return realtime.ToolResult{Success: false, Message: "unknown tool " + name}, nil
	}
}

func (f *ToolFacade) selectService(ctx context.Context, callID string, args map[string]any) (realtime.ToolResult, error) {
	service, _ := args["service"].(string)
	if service == "" {
		return realtime.ToolResult{Success: false, Message: "a service name is required"}, nil
	}
	rec, err := f.calls.SelectService(ctx, callID, service)
	if err != nil {
		return realtime.ToolResult{}, fmt.Errorf("tools: select service: %w", err)
	}
	if rec == nil {
		return realtime.ToolResult{Success: false, Message: "this call is no longer active"}, nil
	}
	return realtime.ToolResult{
		Success: true,
		Message: "service selected",
		Data:    map[string]any{"service": service},
	}, nil
}

func (f *ToolFacade) getQuote(ctx context.Context, callID string, args map[string]any) (realtime.ToolResult, error) {
	rec, err := f.calls.Get(ctx, callID)
	if err != nil {
		return realtime.ToolResult{}, fmt.Errorf("tools: get quote: %w", err)
	}
	if rec == nil {
		return realtime.ToolResult{Success: false, Message: "this call is no longer active"}, nil
	}
	if rec.SelectedService == "" {
		return realtime.ToolResult{Success: false, Message: "pick a service before asking for a quote"}, nil
	}

	details, _ := args["details"].(string)
	q, err := f.quotes.Quote(ctx, rec.BusinessID, rec.SelectedService, details)
	if err != nil {
		f.log.Warn("quote source failed", "call_id", callID, "err", err)
		return realtime.ToolResult{Success: false, Message: "a quote is not available right now"}, nil
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Service == "" {
		q.Service = rec.SelectedService
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = f.clock().UTC()
	}

	if _, err := f.calls.StoreQuote(ctx, callID, q); err != nil {
		return realtime.ToolResult{}, fmt.Errorf("tools: store quote: %w", err)
	}

	e, err := events.New(events.TypeQuoteCollected, callID, f.clock(), events.QuoteCollected{
		QuoteID: q.ID,
		Service: q.Service,
	})
	if err != nil {
		f.log.Warn("quote.collected build failed", "call_id", callID, "err", err)
	} else {
		f.bus.Publish(ctx, e)
	}

	return realtime.ToolResult{
		Success: true,
		Message: "quote collected",
		Data: map[string]any{
			"quote_id": q.ID,
			"amount":   q.Amount,
			"currency": q.Currency,
			"summary":  q.Summary,
		},
	}, nil
}

func (f *ToolFacade) selectQuote(ctx context.Context, callID string, args map[string]any) (realtime.ToolResult, error) {
	quoteID, _ := args["quote_id"].(string)
	if quoteID == "" {
		return realtime.ToolResult{Success: false, Message: "a quote_id is required"}, nil
	}
	rec, err := f.calls.SelectQuote(ctx, callID, quoteID)
	if err != nil {
		return realtime.ToolResult{}, fmt.Errorf("tools: select quote: %w", err)
	}
	if rec == nil {
		return realtime.ToolResult{Success: false, Message: "this call is no longer active"}, nil
	}
	if rec.SelectedQuoteID != quoteID {
		return realtime.ToolResult{Success: false, Message: "no quote with that id on this call"}, nil
	}
	return realtime.ToolResult{
		Success: true,
		Message: "quote selected",
		Data:    map[string]any{"quote_id": quoteID},
	}, nil
}

func (f *ToolFacade) finalizeBooking(ctx context.Context, callID string) (realtime.ToolResult, error) {
	rec, err := f.calls.Get(ctx, callID)
	if err != nil {
		return realtime.ToolResult{}, fmt.Errorf("tools: finalize: %w", err)
	}
	if rec == nil {
		return realtime.ToolResult{Success: false, Message: "this call is no longer active"}, nil
	}
	if rec.SelectedQuoteID == "" {
		return realtime.ToolResult{Success: false, Message: "choose a quote before booking"}, nil
	}
	if err := f.booker.Book(ctx, callID, rec.SelectedQuoteID); err != nil {
		f.log.Warn("booking failed", "call_id", callID, "err", err)
		return realtime.ToolResult{Success: false, Message: "the booking could not be completed"}, nil
	}
	return realtime.ToolResult{
		Success: true,
		Message: "booking confirmed",
		Data:    map[string]any{"quote_id": rec.SelectedQuoteID},
	}, nil
}
