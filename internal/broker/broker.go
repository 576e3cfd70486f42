// Package broker converts order-placement requests into fulfilment events,
// pricing executions from the point-in-time prices view.
package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"go.uber.org/zap"
)

// ServiceName is the broker's name in the service locator.
const ServiceName = "broker_service"

// DefaultExecutionDelay separates an order-placed event from its fulfilment.
const DefaultExecutionDelay = 3 * time.Millisecond

var (
	// ErrInvalidOrder rejects orders the broker will not accept. No event
	// is emitted; the error returns to the caller of PlaceOrder.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrPriceUnavailable is returned when the prices view has no row for
	// the order's asset at execution time.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Service accepts orders and executes them against the prices view.
//
// Orders placed outside trading hours are shifted forward: the order-placed
// event fires at the next session open rather than at the current virtual
// time, so executions are always priced inside a session.
type Service struct {
	logger     *zap.Logger
	manager    *events.Manager
	prices     *data.PricesDataset
	delay      time.Duration
	commission CommissionModel
	orders     map[string]*types.Order
}

// NewService creates a broker and subscribes it to order-placed and
// order-fulfilled events. A non-positive delay selects the default; a nil
// commission model charges nothing.
func NewService(logger *zap.Logger, manager *events.Manager, prices *data.PricesDataset, delay time.Duration, commission CommissionModel) *Service {
	if delay <= 0 {
		delay = DefaultExecutionDelay
	}
	if commission == nil {
		commission = NoCommission{}
	}
	s := &Service{
		logger:     logger,
		manager:    manager,
		prices:     prices,
		delay:      delay,
		commission: commission,
		orders:     make(map[string]*types.Order),
	}
	manager.Subscribe(events.TypeOrderPlaced, s.executeTrade)
	manager.Subscribe(events.TypeOrderFulfilled, s.completeOrder)
	return s
}

// ExecutionDelay returns the configured order-to-fulfilment delay.
func (s *Service) ExecutionDelay() time.Duration {
	return s.delay
}

// PlaceOrder accepts an order for amount shares of asset (negative amounts
// sell) and schedules the order-placed event. The returned order is pending:
// placement is not execution.
func (s *Service) PlaceOrder(asset types.Asset, amount int64) (*types.Order, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrInvalidOrder)
	}

	now := s.manager.CurrentTime()
	placedAt := now
	cal := s.prices.Calendar()
	if !cal.IsTradingMinute(now) {
		placedAt = cal.NextOpen(now)
	}

	order := types.NewOrder(asset, amount, placedAt)
	s.orders[order.ID] = order

	s.logger.Debug("Placing order",
		zap.String("orderId", order.ID),
		zap.String("symbol", asset.Symbol),
		zap.Int64("amount", amount),
		zap.Time("placedAt", placedAt),
		zap.Time("simulationTime", now),
	)

	if err := s.manager.Schedule(events.NewOrderPlaced(order), placedAt.Sub(now)); err != nil {
		delete(s.orders, order.ID)
		return nil, err
	}
	return order, nil
}

// Order returns a previously placed order by id.
func (s *Service) Order(id string) (*types.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown order %s", ErrInvalidOrder, id)
	}
	return order, nil
}

// OpenOrders returns the orders not yet filled, rejected, or cancelled.
func (s *Service) OpenOrders() []*types.Order {
	var open []*types.Order
	for _, order := range s.orders {
		if order.Status == types.OrderStatusOpen {
			open = append(open, order)
		}
	}
	return open
}

// executeTrade handles order-placed events: it prices the order at the
// current virtual time and schedules the fulfilment after the execution
// delay.
func (s *Service) executeTrade(e events.Event) error {
	order, err := events.Payload[*types.Order](e)
	if err != nil {
		return err
	}

	now := s.manager.CurrentTime()
	price, err := s.prices.Price(now, order.Asset.Symbol)
	if err != nil {
		order.Status = types.OrderStatusRejected
		return fmt.Errorf("%w: %s at %s: %v", ErrPriceUnavailable, order.Asset.Symbol, now, err)
	}

	tx := &types.Transaction{
		OrderID: order.ID,
		Asset:   order.Asset,
		Amount:  order.Amount,
		DT:      now.Add(s.delay),
		Price:   price,
	}
	tx.Commission = s.commission.Calculate(order, tx)
	order.Commission = tx.Commission

	s.logger.Debug("Trade executed",
		zap.String("orderId", order.ID),
		zap.String("symbol", order.Asset.Symbol),
		zap.String("price", price.String()),
		zap.Time("simulationTime", now),
	)

	return s.manager.Schedule(events.NewOrderFulfilled(tx), s.delay)
}

// completeOrder handles order-fulfilled events for orders this broker
// placed, marking them filled.
func (s *Service) completeOrder(e events.Event) error {
	tx, err := events.Payload[*types.Transaction](e)
	if err != nil {
		return err
	}
	order, ok := s.orders[tx.OrderID]
	if !ok {
		return nil
	}
	order.Filled = tx.Amount
	order.Status = types.OrderStatusFilled
	return nil
}
