package engine

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state reported for a service.
type Status string

const (
	StatusStarting Status = "starting"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
)

// Event names delivered to host sinks.
const (
	EventServiceStarting = "service_starting"
	EventServiceReady    = "service_ready"
	EventServiceError    = "service_error"
)

// ConfigService is the synthetic service name used when the service list
// itself cannot be loaded.
const ConfigService = "config"

// Event is a single lifecycle notification. URL is set only for StatusReady
// and Err only for StatusError.
type Event struct {
	Timestamp time.Time
	Service   string
	Status    Status
	URL       string
	Err       error
}

// Message returns the error text carried by an error event.
func (e Event) Message() string {
	if e.Status != StatusError || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Name returns the event name a host transport should use for e.
func (e Event) Name() string {
	switch e.Status {
	case StatusStarting:
		return EventServiceStarting
	case StatusReady:
		return EventServiceReady
	default:
		return EventServiceError
	}
}

type eventPayload struct {
	Service string `json:"service"`
	Status  Status `json:"status"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MarshalJSON encodes the payload shape consumed by host windows.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventPayload{
		Service: e.Service,
		Status:  e.Status,
		URL:     e.URL,
		Error:   e.Message(),
	})
}

func newEvent(service string, status Status) Event {
	return Event{Timestamp: time.Now(), Service: service, Status: status}
}
