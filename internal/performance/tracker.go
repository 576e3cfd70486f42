// Package performance records daily strategy metrics at each market close
// and summarizes them at the end of a run.
package performance

import (
	"time"

	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/internal/portfolio"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// ServiceName is the performance tracker's name in the service locator.
const ServiceName = "metrics_service"

// DailyRecord is one market-close observation.
type DailyRecord struct {
	Date           time.Time
	PortfolioValue decimal.Decimal
	NetPositions   map[string]int64
	Return         float64
	HasReturn      bool
}

// Summary aggregates a full run's daily returns.
type Summary struct {
	Sessions         int
	CumulativeReturn float64
	MeanDailyReturn  float64
	StdDailyReturn   float64
	MaxDrawdown      float64
	FinalValue       decimal.Decimal
}

// Tracker subscribes to market-close events and records net positions and
// day-over-day returns. Returns start from the second observed close; the
// previous portfolio state is captured by value so later mutations of the
// live portfolio cannot alias into history.
type Tracker struct {
	logger    *zap.Logger
	manager   *events.Manager
	portfolio *portfolio.Manager

	records       []DailyRecord
	previousValue decimal.Decimal
	hasPrevious   bool
}

// NewTracker creates a tracker and subscribes it to market-close events.
func NewTracker(logger *zap.Logger, em *events.Manager, pm *portfolio.Manager) *Tracker {
	t := &Tracker{
		logger:    logger,
		manager:   em,
		portfolio: pm,
	}
	em.Subscribe(events.TypeMarketClose, t.recordDailyMetrics)
	return t
}

// Records returns a copy of the daily observations in chronological order.
func (t *Tracker) Records() []DailyRecord {
	out := make([]DailyRecord, len(t.records))
	copy(out, t.records)
	return out
}

// DailyReturns returns the recorded returns, one per session from the second
// close onward.
func (t *Tracker) DailyReturns() []float64 {
	var returns []float64
	for _, r := range t.records {
		if r.HasReturn {
			returns = append(returns, r.Return)
		}
	}
	return returns
}

// Summarize computes aggregate statistics over the recorded run.
func (t *Tracker) Summarize() Summary {
	s := Summary{Sessions: len(t.records)}
	if len(t.records) == 0 {
		return s
	}
	s.FinalValue = t.records[len(t.records)-1].PortfolioValue

	first := t.records[0].PortfolioValue
	if !first.IsZero() {
		s.CumulativeReturn, _ = s.FinalValue.Sub(first).Div(first).Float64()
	}

	returns := t.DailyReturns()
	if len(returns) > 0 {
		s.MeanDailyReturn = stat.Mean(returns, nil)
		s.StdDailyReturn = stat.StdDev(returns, nil)
	}
	s.MaxDrawdown = maxDrawdown(t.records)
	return s
}

func (t *Tracker) recordDailyMetrics(e events.Event) error {
	now := t.manager.CurrentTime()
	t.logger.Debug("Recording daily metrics", zap.Time("simulationTime", now))

	p := t.portfolio.Portfolio()
	value := p.PortfolioValue()

	record := DailyRecord{
		Date:           time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		PortfolioValue: value,
		NetPositions:   p.NetPositions(),
	}
	if t.hasPrevious && !t.previousValue.IsZero() {
		record.Return, _ = value.Sub(t.previousValue).Div(t.previousValue).Float64()
		record.HasReturn = true
	}
	t.records = append(t.records, record)

	t.previousValue = value
	t.hasPrevious = true
	return nil
}

// maxDrawdown returns the largest peak-to-trough decline as a positive
// fraction.
func maxDrawdown(records []DailyRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	values := make([]float64, len(records))
	for i, r := range records {
		values[i], _ = r.PortfolioValue.Float64()
	}

	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
