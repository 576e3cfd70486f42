// Package data loads daily OHLCV tables and exposes the point-in-time price
// queries the simulator runs against.
package data

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSymbolNotFound is returned for tickers the backing table does not
	// contain.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrOutOfRange is returned for timestamps outside the table's date
	// range or outside the trading calendar.
	ErrOutOfRange = errors.New("timestamp out of range")

	// ErrSchemaValidation is returned when a source row does not match the
	// OHLCV schema. The first bad row is fatal.
	ErrSchemaValidation = errors.New("schema validation failed")
)

// Row is one (date, ticker) observation. Dates are UTC midnights, one per
// session day.
type Row struct {
	Date   time.Time
	Ticker string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Day normalizes a timestamp to its UTC session-day key.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Frame is an immutable OHLCV table multi-indexed by (date, ticker). Rows for
// one ticker are held date-sorted, so point lookups are binary searches.
type Frame struct {
	byTicker map[string][]Row
	tickers  []string
}

// NewFrame indexes the given rows.
func NewFrame(rows []Row) *Frame {
	f := &Frame{byTicker: make(map[string][]Row)}
	for _, r := range rows {
		r.Date = Day(r.Date)
		f.byTicker[r.Ticker] = append(f.byTicker[r.Ticker], r)
	}
	for ticker, series := range f.byTicker {
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		f.tickers = append(f.tickers, ticker)
	}
	sort.Strings(f.tickers)
	return f
}

// Tickers returns the distinct tickers, sorted.
func (f *Frame) Tickers() []string {
	return f.tickers
}

// Len returns the total number of rows.
func (f *Frame) Len() int {
	n := 0
	for _, series := range f.byTicker {
		n += len(series)
	}
	return n
}

func (f *Frame) series(ticker string) ([]Row, error) {
	series, ok := f.byTicker[ticker]
	if !ok {
		return nil, fmt.Errorf("%q: %w", ticker, ErrSymbolNotFound)
	}
	return series, nil
}

// At returns the exact row for (date, ticker).
func (f *Frame) At(date time.Time, ticker string) (Row, error) {
	series, err := f.series(ticker)
	if err != nil {
		return Row{}, err
	}
	day := Day(date)
	i := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(day) })
	if i == len(series) || !series[i].Date.Equal(day) {
		return Row{}, fmt.Errorf("%q at %s: %w", ticker, day.Format("2006-01-02"), ErrOutOfRange)
	}
	return series[i], nil
}

// LatestOnOrBefore returns the most recent row for ticker with date <= date.
func (f *Frame) LatestOnOrBefore(date time.Time, ticker string) (Row, error) {
	series, err := f.series(ticker)
	if err != nil {
		return Row{}, err
	}
	day := Day(date)
	i := sort.Search(len(series), func(i int) bool { return series[i].Date.After(day) })
	if i == 0 {
		return Row{}, fmt.Errorf("%q before %s: %w", ticker, day.Format("2006-01-02"), ErrOutOfRange)
	}
	return series[i-1], nil
}

// Slice returns the rows for ticker with start <= date <= end, in date order.
func (f *Frame) Slice(start, end time.Time, ticker string) ([]Row, error) {
	series, err := f.series(ticker)
	if err != nil {
		return nil, err
	}
	from, to := Day(start), Day(end)
	lo := sort.Search(len(series), func(i int) bool { return !series[i].Date.Before(from) })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Date.After(to) })
	out := make([]Row, hi-lo)
	copy(out, series[lo:hi])
	return out, nil
}

// Ordinal returns the i-th row (0-based, date order) for ticker.
func (f *Frame) Ordinal(i int, ticker string) (Row, error) {
	series, err := f.series(ticker)
	if err != nil {
		return Row{}, err
	}
	if i < 0 || i >= len(series) {
		return Row{}, fmt.Errorf("%q ordinal %d of %d: %w", ticker, i, len(series), ErrOutOfRange)
	}
	return series[i], nil
}

// History returns up to n rows for ticker ending at the most recent date
// <= date, oldest first.
func (f *Frame) History(date time.Time, ticker string, n int) ([]Row, error) {
	series, err := f.series(ticker)
	if err != nil {
		return nil, err
	}
	day := Day(date)
	hi := sort.Search(len(series), func(i int) bool { return series[i].Date.After(day) })
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	out := make([]Row, hi-lo)
	copy(out, series[lo:hi])
	return out, nil
}
