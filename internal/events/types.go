// Package events provides the event taxonomy and the deterministic
// event-dispatch kernel for the market simulator.
package events

import (
	"fmt"
	"io"
	"time"

	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/google/uuid"
)

// Type is the closed registry of event kinds that can be subscribed to.
type Type string

const (
	// Session boundary events, published by the market event generator.
	// Payload: none.
	TypePreMarketOpen   Type = "pre_market_open"
	TypeMarketOpen      Type = "market_open"
	TypeMarketClose     Type = "market_close"
	TypePostMarketClose Type = "post_market_close"

	// TypeOrderPlaced is published by the broker when an order is accepted.
	// Payload: *types.Order.
	TypeOrderPlaced Type = "order_placed"

	// TypeOrderFulfilled is published by the broker after the execution
	// delay. Payload: *types.Transaction.
	TypeOrderFulfilled Type = "order_fulfilled"

	// TypePortfolioUpdate is published by the portfolio manager after its
	// state changes. Payload: none.
	TypePortfolioUpdate Type = "portfolio_update"

	// TypePriceChange is published by the market price service with a fresh
	// price vector. Payload: *types.PriceChange.
	TypePriceChange Type = "price_change"
)

// Frequency is the cadence of generated market events.
type Frequency string

const (
	FrequencyDaily Frequency = "daily"
)

// Event is a timestamped, typed notification. Time is zero until the event
// is scheduled or generated; the kernel treats the payload opaquely.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    Type      `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// newID produces event ids. Random uuids by default; replaced through
// SetIDSource for deterministic replay.
var newID = uuid.New

// SetIDSource installs a reader-backed uuid source so that two runs with the
// same seed produce identical event ids (and therefore identical tie-break
// order for co-timed events).
func SetIDSource(r io.Reader) {
	newID = func() uuid.UUID {
		id, err := uuid.NewRandomFromReader(r)
		if err != nil {
			panic(fmt.Sprintf("event id source failed: %v", err))
		}
		return id
	}
}

// ResetIDSource restores the default random uuid source.
func ResetIDSource() {
	newID = uuid.New
}

// New creates a payload-less event of the given type.
func New(t Type) Event {
	return Event{ID: newID(), Type: t}
}

// NewAt creates a payload-less event with its time already assigned. Used by
// the market event generator, which owns boundary times.
func NewAt(t Type, at time.Time) Event {
	return Event{ID: newID(), Type: t, Time: at}
}

// NewOrderPlaced creates an order-placed event.
func NewOrderPlaced(order *types.Order) Event {
	return Event{ID: newID(), Type: TypeOrderPlaced, Payload: order}
}

// NewOrderFulfilled creates an order-fulfilled event.
func NewOrderFulfilled(tx *types.Transaction) Event {
	return Event{ID: newID(), Type: TypeOrderFulfilled, Payload: tx}
}

// NewPortfolioUpdate creates a portfolio-update event.
func NewPortfolioUpdate() Event {
	return Event{ID: newID(), Type: TypePortfolioUpdate}
}

// NewPriceChange creates a price-change event.
func NewPriceChange(pc *types.PriceChange) Event {
	return Event{ID: newID(), Type: TypePriceChange, Payload: pc}
}

// Payload extracts a typed payload from an event. The type parameter must
// match the event kind's payload binding.
func Payload[T any](e Event) (T, error) {
	v, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("event %s carries %T, not %T", e.Type, e.Payload, zero)
	}
	return v, nil
}
