package eventlog_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/eventlog"
	"github.com/atlas-desktop/market-simulator/internal/events"
)

func TestWriteAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	w, err := eventlog.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	at := time.Date(2020, 1, 2, 14, 30, 0, 0, time.UTC)
	w.Observe(events.NewAt(events.TypeMarketOpen, at))
	w.Observe(events.NewAt(events.TypeMarketClose, at.Add(6*time.Hour+30*time.Minute)))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	var records []eventlog.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r eventlog.Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("Bad JSONL line: %v", err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Read %d records, want 2", len(records))
	}
	if records[0].Type != string(events.TypeMarketOpen) {
		t.Errorf("First record type = %s, want market_open", records[0].Type)
	}
	if !records[0].Time.Equal(at) {
		t.Errorf("First record time = %v, want %v", records[0].Time, at)
	}
	if records[0].ID == "" {
		t.Error("First record has empty id")
	}
}

func TestNewWriterBadPath(t *testing.T) {
	if _, err := eventlog.NewWriter(filepath.Join(t.TempDir(), "missing", "events.jsonl")); err == nil {
		t.Error("Expected error for unwritable path")
	}
}
