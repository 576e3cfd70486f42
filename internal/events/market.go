package events

import (
	"fmt"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/calendar"
)

// Offsets of the pre-open and post-close siblings from the session
// boundaries.
const (
	preOpenOffset   = 15 * time.Minute
	postCloseOffset = 15 * time.Minute
)

// MarketEvents generates session-boundary events from an exchange calendar.
// It holds no mutable state: the next event is a pure function of the query
// time and the calendar.
type MarketEvents struct {
	cal       *calendar.Calendar
	frequency Frequency
}

// NewMarketEvents creates a generator for the given calendar.
func NewMarketEvents(cal *calendar.Calendar, frequency Frequency) (*MarketEvents, error) {
	if frequency != FrequencyDaily {
		return nil, fmt.Errorf("unsupported market event frequency %q", frequency)
	}
	return &MarketEvents{cal: cal, frequency: frequency}, nil
}

// Calendar returns the generator's exchange calendar.
func (m *MarketEvents) Calendar() *calendar.Calendar {
	return m.cal
}

// NextMarketEvent returns the single next session-boundary event with time
// strictly greater than t. A query landing exactly on a boundary yields the
// boundary after it, never the same instant.
func (m *MarketEvents) NextMarketEvent(t time.Time) Event {
	day := t.In(m.cal.Location())
	if !m.cal.IsSession(day) {
		day = m.cal.NextSession(day)
	}

	for {
		open := m.cal.SessionOpen(day)
		close := m.cal.SessionClose(day)

		candidates := []struct {
			kind Type
			at   time.Time
		}{
			{TypePreMarketOpen, open.Add(-preOpenOffset)},
			{TypeMarketOpen, open},
			{TypeMarketClose, close},
			{TypePostMarketClose, close.Add(postCloseOffset)},
		}

		for _, c := range candidates {
			if c.at.After(t) {
				return NewAt(c.kind, c.at)
			}
		}

		day = m.cal.NextSession(day)
	}
}
