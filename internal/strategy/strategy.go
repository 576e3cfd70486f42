// Package strategy provides the builder and harness through which user
// trading logic hooks into the event loop.
package strategy

import (
	"errors"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/broker"
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/internal/portfolio"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/shopspring/decimal"
)

// DataKind names a data view bound into the strategy.
type DataKind string

const (
	DataCurrentPrices    DataKind = "current_prices"
	DataHistoricalPrices DataKind = "historical_prices"
)

// Context is what a strategy function sees about the simulation at the
// moment it fires.
type Context struct {
	Portfolio *portfolio.Portfolio
	Time      time.Time
	Event     events.Type
	Broker    *broker.Service
}

// Data carries the views declared on the builder, fetched fresh for each
// invocation. Strategies must not retain these across invocations.
type Data struct {
	CurrentPrices    map[string]decimal.Decimal
	HistoricalPrices map[string][]data.Row
}

// Func is user trading logic. Orders are placed through ctx.Broker.
type Func func(ctx *Context, d *Data) error

// Builder configures which events a strategy fires on and which data views
// it receives.
type Builder struct {
	eventKinds []events.Type
	symbols    []string
	bindings   []func(t time.Time, d *Data) error
}

// NewBuilder creates an empty strategy builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// OnEvent adds an event kind the strategy fires on.
func (b *Builder) OnEvent(kind events.Type) *Builder {
	b.eventKinds = append(b.eventKinds, kind)
	return b
}

// WithAssets declares the symbols the data bindings fetch.
func (b *Builder) WithAssets(assets ...types.Asset) *Builder {
	for _, a := range assets {
		b.symbols = append(b.symbols, a.Symbol)
	}
	return b
}

// WithCurrentPrices binds the point-in-time price view.
func (b *Builder) WithCurrentPrices(prices *data.PricesDataset) *Builder {
	b.bindings = append(b.bindings, func(t time.Time, d *Data) error {
		current, err := prices.CurrentPrices(t, b.symbols)
		if err != nil {
			return err
		}
		d.CurrentPrices = current
		return nil
	})
	return b
}

// WithHistoricalData binds a trailing window of lookback daily rows per
// symbol, ending at the event time.
func (b *Builder) WithHistoricalData(lookback int, frame *data.Frame) *Builder {
	b.bindings = append(b.bindings, func(t time.Time, d *Data) error {
		d.HistoricalPrices = make(map[string][]data.Row, len(b.symbols))
		for _, symbol := range b.symbols {
			rows, err := frame.History(t, symbol, lookback)
			if err != nil {
				return err
			}
			d.HistoricalPrices[symbol] = rows
		}
		return nil
	})
	return b
}

// Build finalizes the configuration into a TradingStrategy. At least one
// event kind and a non-nil function are required.
func (b *Builder) Build(fn Func) (*TradingStrategy, error) {
	if fn == nil {
		return nil, errors.New("strategy: nil strategy function")
	}
	if len(b.eventKinds) == 0 {
		return nil, errors.New("strategy: no event kinds configured")
	}
	return &TradingStrategy{
		eventKinds: b.eventKinds,
		bindings:   b.bindings,
		fn:         fn,
	}, nil
}

// TradingStrategy is a built strategy, ready to attach to an engine.
type TradingStrategy struct {
	eventKinds []events.Type
	bindings   []func(t time.Time, d *Data) error
	fn         Func

	manager *events.Manager
	pm      *portfolio.Manager
	broker  *broker.Service
}

// Attach subscribes the strategy to its configured event kinds. The engine
// calls this once during wiring.
func (s *TradingStrategy) Attach(em *events.Manager, pm *portfolio.Manager, b *broker.Service) {
	s.manager = em
	s.pm = pm
	s.broker = b
	for _, kind := range s.eventKinds {
		em.Subscribe(kind, s.execute)
	}
}

// EventKinds returns the kinds the strategy fires on.
func (s *TradingStrategy) EventKinds() []events.Type {
	return s.eventKinds
}

// execute fetches the declared data views and runs the strategy function.
// The Data value is rebuilt per invocation and never reused.
func (s *TradingStrategy) execute(e events.Event) error {
	d := &Data{}
	for _, bind := range s.bindings {
		if err := bind(s.manager.CurrentTime(), d); err != nil {
			return err
		}
	}
	ctx := &Context{
		Portfolio: s.pm.Portfolio(),
		Time:      s.manager.CurrentTime(),
		Event:     e.Type,
		Broker:    s.broker,
	}
	return s.fn(ctx, d)
}
