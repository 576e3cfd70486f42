// Package engine wires the simulator's services together and drives the
// event loop.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/broker"
	"github.com/atlas-desktop/market-simulator/internal/calendar"
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/internal/ledger"
	"github.com/atlas-desktop/market-simulator/internal/market"
	"github.com/atlas-desktop/market-simulator/internal/performance"
	"github.com/atlas-desktop/market-simulator/internal/portfolio"
	"github.com/atlas-desktop/market-simulator/internal/services"
	"github.com/atlas-desktop/market-simulator/internal/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrConfiguration rejects invalid engine configurations at construction.
var ErrConfiguration = errors.New("invalid configuration")

// Config describes one simulation run.
type Config struct {
	Start       time.Time
	End         time.Time
	Exchange    string // ISO MIC, defaults to XNYS
	CapitalBase decimal.Decimal

	// ExecutionDelay overrides the broker's order-to-fulfilment delay;
	// zero keeps the default.
	ExecutionDelay time.Duration
	Commission     broker.CommissionModel

	// Universe restricts the symbols the price service quotes; empty
	// means every symbol in the dataset.
	Universe []string

	Strategy *strategy.TradingStrategy

	// Locator receives the wired services; nil uses the process default.
	Locator *services.Locator
}

// Result is what a finished (or aborted) run reports.
type Result struct {
	StartedAt      time.Time
	EndedAt        time.Time
	EventsTotal    uint64
	Cash           decimal.Decimal
	PositionsValue decimal.Decimal
	PortfolioValue decimal.Decimal
	NetPositions   map[string]int64
	Transactions   int
	Performance    performance.Summary

	// Aborted runs carry the offending event; Err is nil on clean
	// completion.
	OffendingEvent *events.Event
	Err            error
}

// TradingEngine is the facade over the event manager and the services
// subscribed to it.
type TradingEngine struct {
	logger  *zap.Logger
	manager *events.Manager

	Broker      *broker.Service
	Portfolio   *portfolio.Manager
	Ledger      *ledger.Service
	Performance *performance.Tracker
	Market      *market.PriceService
}

// New validates the configuration and wires the engine: event manager,
// market price service, broker, portfolio manager, ledger, performance
// tracker, and the optional strategy, each registered in the service
// locator.
func New(logger *zap.Logger, cfg Config, prices *data.PricesDataset) (*TradingEngine, error) {
	if prices == nil {
		return nil, fmt.Errorf("%w: nil prices dataset", ErrConfiguration)
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		return nil, fmt.Errorf("%w: start and end are required", ErrConfiguration)
	}
	if !cfg.End.After(cfg.Start) {
		return nil, fmt.Errorf("%w: end %s is not after start %s", ErrConfiguration, cfg.End, cfg.Start)
	}
	if cfg.CapitalBase.IsNegative() {
		return nil, fmt.Errorf("%w: negative capital base %s", ErrConfiguration, cfg.CapitalBase)
	}

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "XNYS"
	}
	cal, err := calendar.New(exchange)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if cal.Exchange() != prices.Calendar().Exchange() {
		return nil, fmt.Errorf("%w: dataset calendar is %s, engine wants %s",
			ErrConfiguration, prices.Calendar().Exchange(), exchange)
	}

	gen, err := events.NewMarketEvents(cal, events.FrequencyDaily)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	em := events.NewManager(logger, cfg.Start, cfg.End, gen)
	e := &TradingEngine{
		logger:    logger,
		manager:   em,
		Portfolio: portfolio.NewManager(logger, em, prices, cfg.CapitalBase),
		Market:    market.NewPriceService(logger, em, prices, cfg.Universe),
		Broker:    broker.NewService(logger, em, prices, cfg.ExecutionDelay, cfg.Commission),
		Ledger:    ledger.NewService(logger, em),
	}
	e.Performance = performance.NewTracker(logger, em, e.Portfolio)

	if cfg.Strategy != nil {
		cfg.Strategy.Attach(em, e.Portfolio, e.Broker)
	}

	loc := cfg.Locator
	if loc == nil {
		loc = services.Default()
	}
	loc.Register(events.ServiceName, em)
	loc.Register(broker.ServiceName, e.Broker)
	loc.Register(portfolio.ServiceName, e.Portfolio)
	loc.Register(ledger.ServiceName, e.Ledger)
	loc.Register(performance.ServiceName, e.Performance)
	loc.Register(market.ServiceName, e.Market)

	return e, nil
}

// EventManager exposes the kernel for observers and manual stepping.
func (e *TradingEngine) EventManager() *events.Manager {
	return e.manager
}

// CurrentTime returns the virtual clock.
func (e *TradingEngine) CurrentTime() time.Time {
	return e.manager.CurrentTime()
}

// Run iterates the kernel to exhaustion and reports the final state. A
// handler error aborts the run; the partial state and the offending event
// are preserved in the result.
func (e *TradingEngine) Run() *Result {
	started := e.manager.CurrentTime()
	for {
		evt, err := e.manager.Step()
		if errors.Is(err, events.ErrEndOfSimulation) {
			return e.result(started, nil, nil)
		}
		if err != nil {
			e.logger.Error("Simulation aborted",
				zap.Error(err),
				zap.Time("simulationTime", e.manager.CurrentTime()),
			)
			return e.result(started, &evt, err)
		}
	}
}

// StepUntil iterates until the next dispatched event of the given kind and
// returns it. ErrEndOfSimulation surfaces if the run ends first.
func (e *TradingEngine) StepUntil(kind events.Type) (events.Event, error) {
	for {
		evt, err := e.manager.Step()
		if err != nil {
			return evt, err
		}
		if evt.Type == kind {
			return evt, nil
		}
	}
}

func (e *TradingEngine) result(started time.Time, offending *events.Event, err error) *Result {
	p := e.Portfolio.Portfolio()
	return &Result{
		StartedAt:      started,
		EndedAt:        e.manager.CurrentTime(),
		EventsTotal:    e.manager.EventsDispatched(),
		Cash:           p.Cash(),
		PositionsValue: p.PositionsValue(),
		PortfolioValue: p.PortfolioValue(),
		NetPositions:   p.NetPositions(),
		Transactions:   len(e.Ledger.Transactions()),
		Performance:    e.Performance.Summarize(),
		OffendingEvent: offending,
		Err:            err,
	}
}
