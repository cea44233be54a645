package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Paintersrp/launchpad/internal/engine"
)

// EventRecord is a lifecycle event ready for JSON encoding on a headless
// console or in the terminal window's event pane.
type EventRecord struct {
	Timestamp time.Time     `json:"ts"`
	Event     string        `json:"event"`
	Service   string        `json:"service"`
	Status    engine.Status `json:"status"`
	URL       string        `json:"url,omitempty"`
	Level     string        `json:"level"`
	Error     string        `json:"error,omitempty"`
}

// NewEventRecord converts an engine event into a record. Error text is
// passed through RedactSecrets.
func NewEventRecord(event engine.Event) EventRecord {
	level := "info"
	if event.Status == engine.StatusError {
		level = "error"
	}
	return EventRecord{
		Timestamp: event.Timestamp,
		Event:     event.Name(),
		Service:   event.Service,
		Status:    event.Status,
		URL:       event.URL,
		Level:     level,
		Error:     RedactSecrets(event.Message()),
	}
}

// String renders the record as a single human-readable line.
func (r EventRecord) String() string {
	line := fmt.Sprintf("%s %-16s %-8s", r.Timestamp.Format("15:04:05"), r.Service, r.Status)
	if r.URL != "" {
		line += " " + r.URL
	}
	if r.Error != "" {
		line += " " + r.Error
	}
	return line
}

// EncodeEvent encodes a lifecycle event to JSON, reporting errors to stderr if needed.
func EncodeEvent(enc *json.Encoder, stderr io.Writer, event engine.Event) {
	if enc == nil {
		return
	}
	record := NewEventRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode event: %v\n", err)
	}
}
