package data

import (
	"fmt"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/calendar"
	"github.com/shopspring/decimal"
)

// PricesDataset answers "what is the latest known price of s at time t" over
// a daily OHLCV frame. The answer depends on where t falls in the trading
// session:
//
//	t < open           previous session's close
//	open <= t < close  this session's open
//	t >= close         this session's close
type PricesDataset struct {
	frame *Frame
	cal   *calendar.Calendar
}

// NewPricesDataset wraps a frame with the calendar that defines its sessions.
func NewPricesDataset(frame *Frame, cal *calendar.Calendar) *PricesDataset {
	return &PricesDataset{frame: frame, cal: cal}
}

// Frame exposes the backing table for historical (windowed) queries.
func (p *PricesDataset) Frame() *Frame {
	return p.frame
}

// Calendar returns the trading calendar defining the dataset's sessions.
func (p *PricesDataset) Calendar() *calendar.Calendar {
	return p.cal
}

// Symbols returns the symbols the dataset covers.
func (p *PricesDataset) Symbols() []string {
	return p.frame.Tickers()
}

// CurrentPrices returns the point-in-time price for each requested symbol.
func (p *PricesDataset) CurrentPrices(t time.Time, symbols []string) (map[string]decimal.Decimal, error) {
	day, field, err := p.resolve(t)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		row, err := p.frame.At(day, symbol)
		if err != nil {
			return nil, err
		}
		if field == "open" {
			prices[symbol] = row.Open
		} else {
			prices[symbol] = row.Close
		}
	}
	return prices, nil
}

// Price returns the point-in-time price for a single symbol.
func (p *PricesDataset) Price(t time.Time, symbol string) (decimal.Decimal, error) {
	prices, err := p.CurrentPrices(t, []string{symbol})
	if err != nil {
		return decimal.Zero, err
	}
	return prices[symbol], nil
}

// resolve maps t to the (session day, OHLCV field) pair the session rule
// selects.
func (p *PricesDataset) resolve(t time.Time) (time.Time, string, error) {
	local := t.In(p.cal.Location())
	if !p.cal.IsSession(local) {
		return time.Time{}, "", fmt.Errorf("%s is not a trading day: %w",
			local.Format("2006-01-02"), ErrOutOfRange)
	}

	open := p.cal.SessionOpen(local)
	close := p.cal.SessionClose(local)

	switch {
	case local.Before(open):
		prev := p.cal.PreviousSession(local)
		return prev, "close", nil
	case local.Before(close):
		return local, "open", nil
	default:
		return local, "close", nil
	}
}
