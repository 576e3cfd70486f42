// Package ledger keeps the immutable record of executed trades.
package ledger

import (
	"time"

	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"go.uber.org/zap"
)

// ServiceName is the ledger's name in the service locator.
const ServiceName = "ledger_service"

// Service appends every fulfilled transaction to an in-memory ledger. Trades
// on different names at the same instant keep their dispatch order.
type Service struct {
	logger       *zap.Logger
	manager      *events.Manager
	transactions []types.Transaction
}

// NewService creates a ledger and subscribes it to order-fulfilled events.
func NewService(logger *zap.Logger, em *events.Manager) *Service {
	s := &Service{logger: logger, manager: em}
	em.Subscribe(events.TypeOrderFulfilled, s.recordTransaction)
	return s
}

// Transactions returns a copy of the recorded trades in execution order.
func (s *Service) Transactions() []types.Transaction {
	out := make([]types.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Between returns the trades with from <= dt <= to.
func (s *Service) Between(from, to time.Time) []types.Transaction {
	var out []types.Transaction
	for _, tx := range s.transactions {
		if !tx.DT.Before(from) && !tx.DT.After(to) {
			out = append(out, tx)
		}
	}
	return out
}

func (s *Service) recordTransaction(e events.Event) error {
	tx, err := events.Payload[*types.Transaction](e)
	if err != nil {
		return err
	}
	s.logger.Debug("Recording transaction in ledger",
		zap.String("orderId", tx.OrderID),
		zap.String("symbol", tx.Asset.Symbol),
		zap.Int64("amount", tx.Amount),
		zap.Time("simulationTime", s.manager.CurrentTime()),
	)
	s.transactions = append(s.transactions, *tx)
	return nil
}
