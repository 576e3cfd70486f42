package data_test

import (
	"errors"
	"testing"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/calendar"
	"github.com/atlas-desktop/market-simulator/internal/data"
)

func loadPrices(t *testing.T) *data.PricesDataset {
	t.Helper()
	cal, err := calendar.New("XNYS")
	if err != nil {
		t.Fatalf("Failed to create calendar: %v", err)
	}
	return data.NewPricesDataset(loadSample(t), cal)
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

func TestCurrentPricesAtOpen(t *testing.T) {
	prices := loadPrices(t)

	got, err := prices.CurrentPrices(nyTime(t, "2018-12-31 09:30:00"), []string{"GE", "BA"})
	if err != nil {
		t.Fatalf("CurrentPrices failed: %v", err)
	}
	if got["GE"].String() != "35.37" {
		t.Errorf("GE at open = %s, want 35.37", got["GE"])
	}
	if got["BA"].String() != "311.45" {
		t.Errorf("BA at open = %s, want 311.45", got["BA"])
	}
}

func TestCurrentPricesAtClose(t *testing.T) {
	prices := loadPrices(t)

	got, err := prices.CurrentPrices(nyTime(t, "2018-12-31 16:00:00"), []string{"GE", "BA"})
	if err != nil {
		t.Fatalf("CurrentPrices failed: %v", err)
	}
	if got["GE"].String() != "35.61" {
		t.Errorf("GE at close = %s, want 35.61", got["GE"])
	}
	if got["BA"].String() != "313.39" {
		t.Errorf("BA at close = %s, want 313.39", got["BA"])
	}
}

func TestCurrentPricesBeforeOpen(t *testing.T) {
	prices := loadPrices(t)

	// Before the open the latest known price is the previous session's
	// close (2018-12-28).
	got, err := prices.CurrentPrices(nyTime(t, "2018-12-31 08:00:00"), []string{"GE", "BA"})
	if err != nil {
		t.Fatalf("CurrentPrices failed: %v", err)
	}
	if got["GE"].String() != "35.33" {
		t.Errorf("GE before open = %s, want 35.33", got["GE"])
	}
	if got["BA"].String() != "307.44" {
		t.Errorf("BA before open = %s, want 307.44", got["BA"])
	}
}

func TestCurrentPricesMidSessionUsesOpen(t *testing.T) {
	prices := loadPrices(t)

	price, err := prices.Price(nyTime(t, "2018-12-26 12:00:00"), "BA")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if price.String() != "290.18" {
		t.Errorf("BA mid-session = %s, want 290.18", price)
	}
}

func TestCurrentPricesAfterClose(t *testing.T) {
	prices := loadPrices(t)

	price, err := prices.Price(nyTime(t, "2018-12-26 16:15:00"), "BA")
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if price.String() != "305.06" {
		t.Errorf("BA after close = %s, want 305.06", price)
	}
}

func TestCurrentPricesUnknownSymbol(t *testing.T) {
	prices := loadPrices(t)

	_, err := prices.CurrentPrices(nyTime(t, "2018-12-31 09:30:00"), []string{"TSLA"})
	if !errors.Is(err, data.ErrSymbolNotFound) {
		t.Errorf("Unknown symbol error = %v, want ErrSymbolNotFound", err)
	}
}

func TestCurrentPricesOnHoliday(t *testing.T) {
	prices := loadPrices(t)

	_, err := prices.CurrentPrices(nyTime(t, "2018-12-25 12:00:00"), []string{"BA"})
	if !errors.Is(err, data.ErrOutOfRange) {
		t.Errorf("Holiday error = %v, want ErrOutOfRange", err)
	}
}
