// Package calendar provides trading-session calendars for exchanges
// identified by ISO MIC code. Session boundaries are expressed in the
// exchange's local timezone; all queries are pure functions of the input
// time.
package calendar

import (
	"fmt"
	"time"
)

// Session boundary times for XNYS regular sessions.
const (
	openHour    = 9
	openMinute  = 30
	closeHour   = 16
	closeMinute = 0
)

// Calendar answers session-boundary queries for a single exchange.
type Calendar struct {
	exchange string
	loc      *time.Location
}

// New creates a calendar for the given exchange MIC. Only XNYS is
// currently supported.
func New(exchange string) (*Calendar, error) {
	if exchange != "XNYS" {
		return nil, fmt.Errorf("unknown exchange calendar %q", exchange)
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load exchange timezone: %w", err)
	}
	return &Calendar{exchange: exchange, loc: loc}, nil
}

// Exchange returns the MIC code this calendar was built for.
func (c *Calendar) Exchange() string {
	return c.exchange
}

// Location returns the exchange's local timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsSession reports whether the date of t (in exchange local time) is a
// trading session.
func (c *Calendar) IsSession(t time.Time) bool {
	d := t.In(c.loc)
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !c.isHoliday(d)
}

// SessionOpen returns the session open (09:30 local) on the date of t.
// The date is not checked for being a session; use IsSession first.
func (c *Calendar) SessionOpen(t time.Time) time.Time {
	d := t.In(c.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), openHour, openMinute, 0, 0, c.loc)
}

// SessionClose returns the session close (16:00 local) on the date of t.
func (c *Calendar) SessionClose(t time.Time) time.Time {
	d := t.In(c.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), closeHour, closeMinute, 0, 0, c.loc)
}

// NextSession returns the first session date strictly after the date of t.
func (c *Calendar) NextSession(t time.Time) time.Time {
	d := t.In(c.loc)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.loc)
	for {
		d = d.AddDate(0, 0, 1)
		if c.IsSession(d) {
			return d
		}
	}
}

// PreviousSession returns the last session date strictly before the date of t.
func (c *Calendar) PreviousSession(t time.Time) time.Time {
	d := t.In(c.loc)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.loc)
	for {
		d = d.AddDate(0, 0, -1)
		if c.IsSession(d) {
			return d
		}
	}
}

// NextOpen returns the first session open strictly after t.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	d := t.In(c.loc)
	if c.IsSession(d) && d.Before(c.SessionOpen(d)) {
		return c.SessionOpen(d)
	}
	return c.SessionOpen(c.NextSession(d))
}

// NextClose returns the first session close strictly after t.
func (c *Calendar) NextClose(t time.Time) time.Time {
	d := t.In(c.loc)
	if c.IsSession(d) && d.Before(c.SessionClose(d)) {
		return c.SessionClose(d)
	}
	return c.SessionClose(c.NextSession(d))
}

// PreviousClose returns the last session close at or before t.
func (c *Calendar) PreviousClose(t time.Time) time.Time {
	d := t.In(c.loc)
	if c.IsSession(d) && !d.Before(c.SessionClose(d)) {
		return c.SessionClose(d)
	}
	return c.SessionClose(c.PreviousSession(d))
}

// IsTradingMinute reports whether t falls inside a session, open inclusive,
// close exclusive.
func (c *Calendar) IsTradingMinute(t time.Time) bool {
	d := t.In(c.loc)
	if !c.IsSession(d) {
		return false
	}
	return !d.Before(c.SessionOpen(d)) && d.Before(c.SessionClose(d))
}

// Sessions returns all session dates in [start, end), in ascending order.
func (c *Calendar) Sessions(start, end time.Time) []time.Time {
	var sessions []time.Time
	d := start.In(c.loc)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.loc)
	for d.Before(end) {
		if c.IsSession(d) {
			sessions = append(sessions, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return sessions
}

// isHoliday reports whether d (exchange local) is a full-day XNYS holiday.
func (c *Calendar) isHoliday(d time.Time) bool {
	for _, h := range c.holidays(d.Year()) {
		if h.Month() == d.Month() && h.Day() == d.Day() {
			return true
		}
	}
	return false
}

// holidays returns the observed full-day XNYS holidays for a year.
// Early closes (half days) are regular sessions here.
func (c *Calendar) holidays(year int) []time.Time {
	date := func(m time.Month, day int) time.Time {
		return time.Date(year, m, day, 0, 0, 0, 0, c.loc)
	}

	var hs []time.Time

	// New Year's Day: Sunday rolls to Monday, Saturday is not observed.
	ny := date(time.January, 1)
	switch ny.Weekday() {
	case time.Sunday:
		hs = append(hs, date(time.January, 2))
	case time.Saturday:
		// not observed
	default:
		hs = append(hs, ny)
	}

	hs = append(hs,
		nthWeekday(year, time.January, time.Monday, 3, c.loc),  // MLK Day
		nthWeekday(year, time.February, time.Monday, 3, c.loc), // Washington's Birthday
		easterSunday(year, c.loc).AddDate(0, 0, -2),            // Good Friday
		lastWeekday(year, time.May, time.Monday, c.loc),        // Memorial Day
	)

	if year >= 2022 {
		hs = append(hs, observed(date(time.June, 19))) // Juneteenth
	}

	hs = append(hs,
		observed(date(time.July, 4)),                            // Independence Day
		nthWeekday(year, time.September, time.Monday, 1, c.loc), // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4, c.loc), // Thanksgiving
		observed(date(time.December, 25)),                       // Christmas
	)

	return hs
}

// observed shifts a fixed-date holiday that lands on a weekend: Saturday to
// Friday, Sunday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the nth given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int, loc *time.Location) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday, loc *time.Location) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easterSunday computes Easter Sunday for a year (Gregorian computus).
func easterSunday(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	cc := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := cc / 4
	k := cc % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
