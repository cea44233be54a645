package cli

import (
	"sync"
	"time"

	"github.com/Paintersrp/launchpad/internal/cliutil"
	"github.com/Paintersrp/launchpad/internal/engine"
)

const defaultHistorySize = 20

// serviceStatus captures runtime state for a service observed via events.
type serviceStatus struct {
	name      string
	firstSeen time.Time
	lastEvent time.Time
	status    engine.Status
	url       string
	message   string
	history   []ServiceTransition
}

// ServiceTransition is a recorded lifecycle change.
type ServiceTransition struct {
	Timestamp time.Time
	Event     string
	Status    engine.Status
	Message   string
}

// statusTracker maintains in-memory status for services based on engine
// events. It is an engine.Sink.
type statusTracker struct {
	mu          sync.RWMutex
	services    map[string]*serviceStatus
	order       []string
	historySize int
}

var _ engine.Sink = (*statusTracker)(nil)

func newStatusTracker() *statusTracker {
	return &statusTracker{
		services:    make(map[string]*serviceStatus),
		historySize: defaultHistorySize,
	}
}

// Emit implements engine.Sink.
func (t *statusTracker) Emit(evt engine.Event) {
	t.Apply(evt)
}

// Apply updates the tracker based on the supplied event.
func (t *statusTracker) Apply(evt engine.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.services[evt.Service]
	if state == nil {
		state = &serviceStatus{name: evt.Service, firstSeen: evt.Timestamp}
		t.services[evt.Service] = state
		t.order = append(t.order, evt.Service)
	}
	if evt.Timestamp.After(state.lastEvent) {
		state.lastEvent = evt.Timestamp
	}

	state.status = evt.Status
	state.message = cliutil.RedactSecrets(evt.Message())
	switch evt.Status {
	case engine.StatusReady:
		state.url = evt.URL
	case engine.StatusStarting:
		state.url = ""
	}

	state.history = append(state.history, ServiceTransition{
		Timestamp: evt.Timestamp,
		Event:     evt.Name(),
		Status:    evt.Status,
		Message:   state.message,
	})
	if t.historySize > 0 && len(state.history) > t.historySize {
		trim := len(state.history) - t.historySize
		state.history = append([]ServiceTransition(nil), state.history[trim:]...)
	}
}

// ServiceStatus captures a snapshot of a service state for presentation.
type ServiceStatus struct {
	Name      string
	FirstSeen time.Time
	LastEvent time.Time
	Status    engine.Status
	Ready     bool
	URL       string
	Message   string
}

func (s *serviceStatus) snapshot() ServiceStatus {
	return ServiceStatus{
		Name:      s.name,
		FirstSeen: s.firstSeen,
		LastEvent: s.lastEvent,
		Status:    s.status,
		Ready:     s.status == engine.StatusReady,
		URL:       s.url,
		Message:   s.message,
	}
}

// Snapshot returns copies of the tracked state in the order services first
// reported.
func (t *statusTracker) Snapshot() []ServiceStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ServiceStatus, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.services[name].snapshot())
	}
	return out
}

// Lookup returns the state of a single service.
func (t *statusTracker) Lookup(name string) (ServiceStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.services[name]
	if !ok {
		return ServiceStatus{}, false
	}
	return state.snapshot(), true
}

// History returns up to depth of the most recent transitions for name.
func (t *statusTracker) History(name string, depth int) []ServiceTransition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.services[name]
	if !ok {
		return nil
	}
	history := state.history
	if depth > 0 && len(history) > depth {
		history = history[len(history)-depth:]
	}
	return append([]ServiceTransition(nil), history...)
}

// Names returns the known services in first-seen order.
func (t *statusTracker) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}
