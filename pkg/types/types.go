// Package types provides shared type definitions for the market simulator.
package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset identifies a tradable instrument. Identity is by SID; the struct is
// treated as immutable once constructed.
type Asset struct {
	SID             int64           `json:"sid"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	PriceMultiplier decimal.Decimal `json:"priceMultiplier"`
}

// NewAsset creates an asset with the default price multiplier of 1.
func NewAsset(sid int64, symbol, name string) Asset {
	return Asset{
		SID:             sid,
		Symbol:          symbol,
		Name:            name,
		PriceMultiplier: decimal.NewFromInt(1),
	}
}

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusHeld      OrderStatus = "held"
)

// Order represents a request to buy or sell an asset. A positive amount is a
// buy, a negative amount is a sell.
type Order struct {
	ID         string          `json:"id"`
	Asset      Asset           `json:"asset"`
	Amount     int64           `json:"amount"`
	PlacedAt   time.Time       `json:"placedAt"`
	Filled     int64           `json:"filled"`
	Commission decimal.Decimal `json:"commission"`
	Status     OrderStatus     `json:"status"`
}

// NewOrder creates an open order with a generated id.
func NewOrder(asset Asset, amount int64, placedAt time.Time) *Order {
	return &Order{
		ID:       uuid.New().String(),
		Asset:    asset,
		Amount:   amount,
		PlacedAt: placedAt,
		Status:   OrderStatusOpen,
	}
}

// Transaction is the immutable record of a single execution. It is the
// payload of every order-fulfilled event.
type Transaction struct {
	OrderID    string          `json:"orderId"`
	Asset      Asset           `json:"asset"`
	Amount     int64           `json:"amount"`
	DT         time.Time       `json:"dt"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
}

// PriceChange carries a fresh price vector for a set of symbols.
type PriceChange struct {
	Prices map[string]decimal.Decimal `json:"prices"`
}
