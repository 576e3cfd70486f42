// Package api_test provides tests for the API server.
package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/api"
	"github.com/atlas-desktop/market-simulator/internal/calendar"
	"github.com/atlas-desktop/market-simulator/internal/data"
	"github.com/atlas-desktop/market-simulator/internal/engine"
	"github.com/atlas-desktop/market-simulator/internal/services"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T) (*api.Server, *httptest.Server) {
	t.Helper()
	logger := zap.NewNop()

	cal, err := calendar.New("XNYS")
	if err != nil {
		t.Fatalf("Failed to create calendar: %v", err)
	}
	frame, err := data.NewCSVSource("../data/testdata/ohlcv/sample.csv").Load()
	if err != nil {
		t.Fatalf("Failed to load sample data: %v", err)
	}
	prices := data.NewPricesDataset(frame, cal)

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load timezone: %v", err)
	}
	eng, err := engine.New(logger, engine.Config{
		Start:       time.Date(2018, 12, 26, 0, 0, 0, 0, loc),
		End:         time.Date(2018, 12, 31, 0, 0, 0, 0, loc),
		CapitalBase: decimal.NewFromInt(1000),
		Locator:     services.NewLocator(),
	}, prices)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	cfg := &types.ServerConfig{
		Host:          "127.0.0.1",
		Port:          0,
		WebSocketPath: "/ws",
		EnableMetrics: true,
	}
	server := api.NewServer(logger, cfg, eng, prometheus.NewRegistry())
	ts := httptest.NewServer(server.Router())
	return server, ts
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return result
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := setupTestServer(t)
	defer ts.Close()

	result := getJSON(t, ts.URL+"/api/v1/health")
	if result["status"] != "ok" {
		t.Errorf("Expected status 'ok', got %v", result["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := setupTestServer(t)
	defer ts.Close()

	result := getJSON(t, ts.URL+"/api/v1/status")
	if _, ok := result["simulationTime"]; !ok {
		t.Error("Status missing simulationTime")
	}
	if result["eventsDispatched"].(float64) != 0 {
		t.Errorf("Expected 0 dispatched events, got %v", result["eventsDispatched"])
	}
}

func TestPortfolioEndpoint(t *testing.T) {
	_, ts := setupTestServer(t)
	defer ts.Close()

	result := getJSON(t, ts.URL+"/api/v1/portfolio")
	if result["cash"] != "1000" {
		t.Errorf("Expected cash '1000', got %v", result["cash"])
	}
}

func TestResultEndpointBeforeCompletion(t *testing.T) {
	_, ts := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/result")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 before completion, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 from /metrics, got %d", resp.StatusCode)
	}
}
