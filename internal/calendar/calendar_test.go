package calendar_test

import (
	"testing"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/calendar"
)

func mustCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New("XNYS")
	if err != nil {
		t.Fatalf("Failed to create calendar: %v", err)
	}
	return cal
}

func nyTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load timezone: %v", err)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", value, err)
	}
	return ts
}

func TestUnknownExchange(t *testing.T) {
	if _, err := calendar.New("XLON"); err == nil {
		t.Error("Expected error for unknown exchange")
	}
}

func TestIsSession(t *testing.T) {
	cal := mustCalendar(t)

	cases := []struct {
		date    string
		session bool
	}{
		{"2020-01-01 00:00:00", false}, // New Year's Day
		{"2020-01-02 00:00:00", true},
		{"2020-01-03 00:00:00", true},
		{"2020-01-04 00:00:00", false}, // Saturday
		{"2020-01-05 00:00:00", false}, // Sunday
		{"2020-01-06 00:00:00", true},
		{"2018-11-22 00:00:00", false}, // Thanksgiving
		{"2018-11-23 00:00:00", true},
		{"2018-12-25 00:00:00", false}, // Christmas
		{"2018-12-26 00:00:00", true},
		{"2021-10-01 00:00:00", true},
		{"2019-04-19 00:00:00", false}, // Good Friday
		{"2022-06-20 00:00:00", false}, // Juneteenth observed (Sun -> Mon)
		{"2021-06-18 00:00:00", true},  // Juneteenth not yet observed in 2021
	}

	for _, tc := range cases {
		if got := cal.IsSession(nyTime(t, tc.date)); got != tc.session {
			t.Errorf("IsSession(%s) = %v, want %v", tc.date, got, tc.session)
		}
	}
}

func TestSessionsEmptyWeek(t *testing.T) {
	cal := mustCalendar(t)

	start := nyTime(t, "2020-01-01 00:00:00")
	end := nyTime(t, "2020-01-10 00:00:00")

	sessions := cal.Sessions(start, end)
	if len(sessions) != 6 {
		t.Fatalf("Expected 6 sessions, got %d", len(sessions))
	}

	wantDays := []int{2, 3, 6, 7, 8, 9}
	for i, s := range sessions {
		if s.Day() != wantDays[i] {
			t.Errorf("Session %d on day %d, want %d", i, s.Day(), wantDays[i])
		}
	}
}

func TestNextOpenAndClose(t *testing.T) {
	cal := mustCalendar(t)

	// Midnight before a session day.
	next := cal.NextOpen(nyTime(t, "2020-01-02 00:00:00"))
	if want := nyTime(t, "2020-01-02 09:30:00"); !next.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", next, want)
	}

	// During the session the next open is the following session.
	next = cal.NextOpen(nyTime(t, "2020-01-02 10:00:00"))
	if want := nyTime(t, "2020-01-03 09:30:00"); !next.Equal(want) {
		t.Errorf("NextOpen in-session = %v, want %v", next, want)
	}

	// Exactly at the open, the next open is the following session.
	next = cal.NextOpen(nyTime(t, "2020-01-02 09:30:00"))
	if want := nyTime(t, "2020-01-03 09:30:00"); !next.Equal(want) {
		t.Errorf("NextOpen at open = %v, want %v", next, want)
	}

	// Friday afternoon rolls across the weekend.
	nextClose := cal.NextClose(nyTime(t, "2020-01-03 16:00:00"))
	if want := nyTime(t, "2020-01-06 16:00:00"); !nextClose.Equal(want) {
		t.Errorf("NextClose at close = %v, want %v", nextClose, want)
	}
}

func TestPreviousClose(t *testing.T) {
	cal := mustCalendar(t)

	// Before the open on a session day the previous close is yesterday's
	// (skipping the Christmas holiday).
	prev := cal.PreviousClose(nyTime(t, "2018-12-26 08:00:00"))
	if want := nyTime(t, "2018-12-24 16:00:00"); !prev.Equal(want) {
		t.Errorf("PreviousClose = %v, want %v", prev, want)
	}

	// After the close the previous close is today's.
	prev = cal.PreviousClose(nyTime(t, "2018-12-26 17:00:00"))
	if want := nyTime(t, "2018-12-26 16:00:00"); !prev.Equal(want) {
		t.Errorf("PreviousClose after close = %v, want %v", prev, want)
	}
}

func TestIsTradingMinute(t *testing.T) {
	cal := mustCalendar(t)

	cases := []struct {
		ts      string
		trading bool
	}{
		{"2021-10-01 08:00:00", false},
		{"2021-10-01 09:30:00", true},
		{"2021-10-01 12:00:00", true},
		{"2021-10-01 16:00:00", false}, // close is exclusive
		{"2021-10-02 12:00:00", false}, // Saturday
	}

	for _, tc := range cases {
		if got := cal.IsTradingMinute(nyTime(t, tc.ts)); got != tc.trading {
			t.Errorf("IsTradingMinute(%s) = %v, want %v", tc.ts, got, tc.trading)
		}
	}
}
