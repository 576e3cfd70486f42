package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/calendar"
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/engine"
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/atlas-desktop/market-simulator/internal/services"
	"github.com/atlas-desktop/market-simulator/internal/strategy"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

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

func loadPrices(t *testing.T) *data.PricesDataset {
	t.Helper()
	cal, err := calendar.New("XNYS")
	if err != nil {
		t.Fatalf("Failed to create calendar: %v", err)
	}
	frame, err := data.NewCSVSource("../data/testdata/ohlcv/sample.csv").Load()
	if err != nil {
		t.Fatalf("Failed to load sample data: %v", err)
	}
	return data.NewPricesDataset(frame, cal)
}

func TestConfigurationErrors(t *testing.T) {
	prices := loadPrices(t)
	logger := zap.NewNop()
	start := nyTime(t, "2018-12-26 00:00:00")
	end := nyTime(t, "2018-12-31 00:00:00")

	cases := []struct {
		name string
		cfg  engine.Config
	}{
		{"missing times", engine.Config{}},
		{"end before start", engine.Config{Start: end, End: start}},
		{"unknown exchange", engine.Config{Start: start, End: end, Exchange: "XLON"}},
		{"negative capital", engine.Config{Start: start, End: end,
			CapitalBase: decimal.NewFromInt(-1)}},
	}
	for _, tc := range cases {
		if _, err := engine.New(logger, tc.cfg, prices); !errors.Is(err, engine.ErrConfiguration) {
			t.Errorf("%s: error = %v, want ErrConfiguration", tc.name, err)
		}
	}

	if _, err := engine.New(logger, engine.Config{Start: start, End: end}, nil); !errors.Is(err, engine.ErrConfiguration) {
		t.Errorf("nil dataset: error = %v, want ErrConfiguration", err)
	}
}

func TestBuyAndHoldRun(t *testing.T) {
	prices := loadPrices(t)
	ge := types.NewAsset(1, "GE", "General Electric")

	built, err := strategy.NewBuilder().
		OnEvent(events.TypeMarketOpen).
		WithAssets(ge).
		WithCurrentPrices(prices).
		Build(func(ctx *strategy.Context, d *strategy.Data) error {
			if len(ctx.Portfolio.Lots()) == 0 {
				_, err := ctx.Broker.PlaceOrder(ge, 1)
				return err
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	loc := services.NewLocator()
	eng, err := engine.New(zap.NewNop(), engine.Config{
		Start:       nyTime(t, "2018-12-26 00:00:00"),
		End:         nyTime(t, "2018-12-31 00:00:00"),
		CapitalBase: decimal.NewFromInt(1000),
		Universe:    []string{"GE", "BA"},
		Strategy:    built,
		Locator:     loc,
	}, prices)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := eng.Run()
	if result.Err != nil {
		t.Fatalf("Run aborted: %v", result.Err)
	}

	// One share of GE bought at the 2018-12-26 open and held.
	if result.NetPositions["GE"] != 1 {
		t.Errorf("Net GE = %d, want 1", result.NetPositions["GE"])
	}
	if result.Transactions != 1 {
		t.Errorf("Transactions = %d, want 1", result.Transactions)
	}
	if want := decimal.RequireFromString("967.12"); !result.Cash.Equal(want) {
		t.Errorf("Cash = %s, want %s", result.Cash, want)
	}
	// Marked at the 2018-12-28 close (35.33).
	if want := decimal.RequireFromString("35.33"); !result.PositionsValue.Equal(want) {
		t.Errorf("PositionsValue = %s, want %s", result.PositionsValue, want)
	}
	if want := decimal.RequireFromString("1002.45"); !result.PortfolioValue.Equal(want) {
		t.Errorf("PortfolioValue = %s, want %s", result.PortfolioValue, want)
	}
	// Three sessions: Dec 26, 27, 28.
	if result.Performance.Sessions != 3 {
		t.Errorf("Sessions = %d, want 3", result.Performance.Sessions)
	}

	// The services were registered in the locator.
	if _, err := loc.Get("broker_service"); err != nil {
		t.Errorf("Broker not registered: %v", err)
	}
	if _, err := loc.Get("event_manager"); err != nil {
		t.Errorf("Event manager not registered: %v", err)
	}
}

func TestStepUntilPreMarketOpen(t *testing.T) {
	prices := loadPrices(t)

	eng, err := engine.New(zap.NewNop(), engine.Config{
		Start:       nyTime(t, "2018-11-27 00:00:00"),
		End:         nyTime(t, "2018-11-30 23:59:59"),
		CapitalBase: decimal.NewFromInt(1000),
		Locator:     services.NewLocator(),
	}, prices)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var seen []events.Event
	for {
		e, err := eng.StepUntil(events.TypePreMarketOpen)
		if errors.Is(err, events.ErrEndOfSimulation) {
			break
		}
		if err != nil {
			t.Fatalf("StepUntil failed: %v", err)
		}
		seen = append(seen, e)
	}

	// One pre-market-open per session: Nov 27, 28, 29, 30.
	if len(seen) != 4 {
		t.Fatalf("Got %d pre_market_open events, want 4", len(seen))
	}
	for i, e := range seen {
		want := nyTime(t, "2018-11-27 09:15:00").AddDate(0, 0, i)
		if !e.Time.Equal(want) {
			t.Errorf("Event %d at %v, want %v", i, e.Time, want)
		}
	}
}

func TestRunAbortPreservesState(t *testing.T) {
	prices := loadPrices(t)

	eng, err := engine.New(zap.NewNop(), engine.Config{
		Start:       nyTime(t, "2018-12-26 00:00:00"),
		End:         nyTime(t, "2018-12-31 00:00:00"),
		CapitalBase: decimal.NewFromInt(1000),
		Locator:     services.NewLocator(),
	}, prices)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	boom := errors.New("boom")
	eng.EventManager().Subscribe(events.TypeMarketClose, func(events.Event) error {
		return boom
	})

	result := eng.Run()
	if !errors.Is(result.Err, boom) {
		t.Fatalf("Result error = %v, want boom", result.Err)
	}
	if result.OffendingEvent == nil || result.OffendingEvent.Type != events.TypeMarketClose {
		t.Error("Offending event not preserved")
	}
	// The clock stopped at the failing event.
	if want := nyTime(t, "2018-12-26 16:00:00"); !result.EndedAt.Equal(want) {
		t.Errorf("EndedAt = %v, want %v", result.EndedAt, want)
	}
	if !result.Cash.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Cash = %s, want untouched 1000", result.Cash)
	}
}
