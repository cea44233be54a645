package api

import (
	stdcontext "context"
	"errors"
	"time"

	"github.com/Paintersrp/launchpad/internal/engine"
)

var (
	ErrNotStarted     = errors.New("launcher not started")
	ErrUnknownService = errors.New("unknown service")
	ErrNoWindow       = errors.New("launcher has no window to focus")
)

// ServiceTransition is one lifecycle event in a service's history.
type ServiceTransition struct {
	Timestamp time.Time     `json:"timestamp"`
	Event     string        `json:"event"`
	Status    engine.Status `json:"status"`
	Message   string        `json:"message,omitempty"`
}

// ServiceReport describes the last known state of a single service.
type ServiceReport struct {
	Name      string              `json:"name"`
	Status    engine.Status       `json:"status"`
	Ready     bool                `json:"ready"`
	URL       string              `json:"url,omitempty"`
	Message   string              `json:"message,omitempty"`
	FirstSeen time.Time           `json:"first_seen"`
	LastEvent time.Time           `json:"last_event"`
	History   []ServiceTransition `json:"history"`
}

// StatusReport aggregates the state of every service in start order.
type StatusReport struct {
	Source      string          `json:"source"`
	Version     string          `json:"version"`
	Shutdown    string          `json:"shutdown"`
	GeneratedAt time.Time       `json:"generated_at"`
	Services    []ServiceReport `json:"services"`
}

// Controller exposes launcher state to the status server.
type Controller interface {
	Status(stdcontext.Context) (*StatusReport, error)
	Service(stdcontext.Context, string) (*ServiceReport, error)
	// Focus asks the running launcher to bring its window forward.
	Focus(stdcontext.Context) error
}
