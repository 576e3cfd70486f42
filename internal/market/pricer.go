// Package market emits price-change events at session boundaries, driving
// portfolio revaluation from the historical price store.
package market

import (
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"go.uber.org/zap"
)

// ServiceName is the price service's name in the service locator.
const ServiceName = "market_price_service"

// PriceService publishes a fresh price vector for its universe at every
// market open and close. The vector is read from the prices view at the
// boundary time, so opens carry session opens and closes carry session
// closes.
type PriceService struct {
	logger   *zap.Logger
	manager  *events.Manager
	prices   *data.PricesDataset
	universe []string
}

// NewPriceService creates a price service over the given symbol universe and
// subscribes it to market-open and market-close events. An empty universe
// defaults to every symbol the dataset covers.
func NewPriceService(logger *zap.Logger, em *events.Manager, prices *data.PricesDataset, universe []string) *PriceService {
	if len(universe) == 0 {
		universe = prices.Symbols()
	}
	s := &PriceService{
		logger:   logger,
		manager:  em,
		prices:   prices,
		universe: universe,
	}
	em.Subscribe(events.TypeMarketOpen, s.publishPrices)
	em.Subscribe(events.TypeMarketClose, s.publishPrices)
	return s
}

// Universe returns the symbols the service quotes.
func (s *PriceService) Universe() []string {
	return s.universe
}

func (s *PriceService) publishPrices(e events.Event) error {
	now := s.manager.CurrentTime()
	prices, err := s.prices.CurrentPrices(now, s.universe)
	if err != nil {
		return err
	}
	s.logger.Debug("Publishing price change",
		zap.Int("symbols", len(prices)),
		zap.Time("simulationTime", now),
	)
	return s.manager.Schedule(events.NewPriceChange(&types.PriceChange{Prices: prices}), 0)
}
