// Package portfolio tracks cash, lots, and derived valuations over the life
// of a simulation.
package portfolio

import (
	"sort"
	"time"

	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/shopspring/decimal"
)

// Lot is the immutable record of a single execution, keyed by
// (symbol, execution time).
type Lot struct {
	Symbol    string
	DT        time.Time
	Amount    int64
	CostBasis decimal.Decimal
}

// Portfolio is a point-in-time view of holdings. It mutates only through
// Apply and SetMarketPrices; the derived values (positions value, portfolio
// value, weights) are computed lazily and cached until the next mutation.
type Portfolio struct {
	startingCash decimal.Decimal
	cash         decimal.Decimal
	lots         []Lot
	prices       map[string]decimal.Decimal

	dirty          bool
	positionsValue decimal.Decimal
	portfolioValue decimal.Decimal
	weights        map[string]decimal.Decimal
}

// New creates a portfolio holding capitalBase in cash and nothing else.
func New(capitalBase decimal.Decimal) *Portfolio {
	return &Portfolio{
		startingCash: capitalBase,
		cash:         capitalBase,
		prices:       make(map[string]decimal.Decimal),
		dirty:        true,
	}
}

// Apply records a transaction: a new lot at the fill price, and a cash delta
// of amount * price plus commission.
func (p *Portfolio) Apply(tx *types.Transaction) {
	p.lots = append(p.lots, Lot{
		Symbol:    tx.Asset.Symbol,
		DT:        tx.DT,
		Amount:    tx.Amount,
		CostBasis: tx.Price,
	})
	cost := tx.Price.Mul(decimal.NewFromInt(tx.Amount)).Add(tx.Commission)
	p.cash = p.cash.Sub(cost)
	p.dirty = true
}

// SetMarketPrices replaces the current price vector and invalidates every
// cached derived value.
func (p *Portfolio) SetMarketPrices(prices map[string]decimal.Decimal) {
	p.prices = make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		p.prices[symbol] = price
	}
	p.dirty = true
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// StartingCash returns the capital base the portfolio began with.
func (p *Portfolio) StartingCash() decimal.Decimal {
	return p.startingCash
}

// CapitalUsed returns the cash consumed since the start.
func (p *Portfolio) CapitalUsed() decimal.Decimal {
	return p.startingCash.Sub(p.cash)
}

// Lots returns a copy of the lot history in execution order.
func (p *Portfolio) Lots() []Lot {
	out := make([]Lot, len(p.lots))
	copy(out, p.lots)
	return out
}

// CurrentMarketPrices returns a copy of the current price vector.
func (p *Portfolio) CurrentMarketPrices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.prices))
	for symbol, price := range p.prices {
		out[symbol] = price
	}
	return out
}

// NetPositions aggregates lots into net share counts per symbol.
func (p *Portfolio) NetPositions() map[string]int64 {
	net := make(map[string]int64)
	for _, lot := range p.lots {
		net[lot.Symbol] += lot.Amount
	}
	return net
}

// HeldSymbols returns the symbols with at least one lot, sorted.
func (p *Portfolio) HeldSymbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, lot := range p.lots {
		if !seen[lot.Symbol] {
			seen[lot.Symbol] = true
			symbols = append(symbols, lot.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// PositionsValue returns the mark-to-market value of all holdings.
func (p *Portfolio) PositionsValue() decimal.Decimal {
	p.recompute()
	return p.positionsValue
}

// PortfolioValue returns cash plus positions value.
func (p *Portfolio) PortfolioValue() decimal.Decimal {
	p.recompute()
	return p.portfolioValue
}

// Weights returns each symbol's share of the total positions value.
func (p *Portfolio) Weights() map[string]decimal.Decimal {
	p.recompute()
	out := make(map[string]decimal.Decimal, len(p.weights))
	for symbol, w := range p.weights {
		out[symbol] = w
	}
	return out
}

func (p *Portfolio) recompute() {
	if !p.dirty {
		return
	}

	values := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for symbol, amount := range p.NetPositions() {
		price, ok := p.prices[symbol]
		if !ok {
			continue
		}
		v := price.Mul(decimal.NewFromInt(amount))
		values[symbol] = v
		total = total.Add(v)
	}

	p.positionsValue = total
	p.portfolioValue = p.cash.Add(total)
	p.weights = make(map[string]decimal.Decimal, len(values))
	if !total.IsZero() {
		for symbol, v := range values {
			p.weights[symbol] = v.Div(total)
		}
	}
	p.dirty = false
}
