package portfolio

import (
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ServiceName is the portfolio manager's name in the service locator.
const ServiceName = "portfolio_service"

// Manager wires the portfolio into the event loop. It owns the event
// handlers; the valuation logic lives on Portfolio.
type Manager struct {
	logger    *zap.Logger
	manager   *events.Manager
	prices    *data.PricesDataset
	portfolio *Portfolio
}

// NewManager creates a portfolio manager with the given capital base and
// subscribes it to order-fulfilled and price-change events.
func NewManager(logger *zap.Logger, em *events.Manager, prices *data.PricesDataset, capitalBase decimal.Decimal) *Manager {
	m := &Manager{
		logger:    logger,
		manager:   em,
		prices:    prices,
		portfolio: New(capitalBase),
	}
	em.Subscribe(events.TypeOrderFulfilled, m.updatePositions)
	em.Subscribe(events.TypePriceChange, m.handlePriceChange)
	return m
}

// Portfolio returns the live portfolio.
func (m *Manager) Portfolio() *Portfolio {
	return m.portfolio
}

// updatePositions applies a fulfilled transaction, refreshes market prices
// for the held symbols, and announces the state change.
func (m *Manager) updatePositions(e events.Event) error {
	tx, err := events.Payload[*types.Transaction](e)
	if err != nil {
		return err
	}

	m.logger.Debug("Updating portfolio positions",
		zap.String("symbol", tx.Asset.Symbol),
		zap.Int64("amount", tx.Amount),
		zap.String("price", tx.Price.String()),
		zap.Time("simulationTime", m.manager.CurrentTime()),
	)

	m.portfolio.Apply(tx)
	if err := m.refreshMarketPrices(); err != nil {
		return err
	}
	return m.manager.Schedule(events.NewPortfolioUpdate(), 0)
}

// handlePriceChange refreshes the price vector when the portfolio holds
// anything; an empty portfolio has nothing to revalue.
func (m *Manager) handlePriceChange(e events.Event) error {
	if len(m.portfolio.HeldSymbols()) == 0 {
		return nil
	}
	m.logger.Debug("Setting new market prices on portfolio",
		zap.Time("simulationTime", m.manager.CurrentTime()),
	)
	return m.refreshMarketPrices()
}

func (m *Manager) refreshMarketPrices() error {
	symbols := m.portfolio.HeldSymbols()
	if len(symbols) == 0 {
		return nil
	}
	prices, err := m.prices.CurrentPrices(m.manager.CurrentTime(), symbols)
	if err != nil {
		return err
	}
	m.portfolio.SetMarketPrices(prices)
	return nil
}
