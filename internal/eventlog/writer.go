// Package eventlog appends dispatched events to a JSONL file for offline
// inspection and replay auditing.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/events"
)

// Record is one logged dispatch.
type Record struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// Writer streams dispatch records to a file, one JSON object per line.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	path string
}

// NewWriter creates (or truncates) the log file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create event log %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &Writer{f: f, buf: buf, enc: json.NewEncoder(buf), path: path}, nil
}

// Path returns the log file's location.
func (w *Writer) Path() string {
	return w.path
}

// Observe appends one event. Attach with Manager.OnDispatch; encode failures
// are dropped because observers cannot surface errors mid-dispatch.
func (w *Writer) Observe(e events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.enc.Encode(Record{
		ID:      e.ID.String(),
		Type:    string(e.Type),
		Time:    e.Time,
		Payload: e.Payload,
	})
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
