package broker

import (
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/shopspring/decimal"
)

// CommissionModel prices the cost of executing an order. The returned value
// is recorded on the transaction and charged against portfolio cash.
type CommissionModel interface {
	Calculate(order *types.Order, tx *types.Transaction) decimal.Decimal
}

// NoCommission charges nothing. It is the default model.
type NoCommission struct{}

func (NoCommission) Calculate(*types.Order, *types.Transaction) decimal.Decimal {
	return decimal.Zero
}

// PerShareCommission charges a flat rate per share with an optional minimum
// per trade.
type PerShareCommission struct {
	Rate    decimal.Decimal
	Minimum decimal.Decimal
}

func (c PerShareCommission) Calculate(order *types.Order, tx *types.Transaction) decimal.Decimal {
	shares := tx.Amount
	if shares < 0 {
		shares = -shares
	}
	cost := c.Rate.Mul(decimal.NewFromInt(shares))
	if cost.LessThan(c.Minimum) {
		return c.Minimum
	}
	return cost
}
