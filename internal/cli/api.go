package cli

import (
	stdcontext "context"
	"fmt"
	"time"

	"github.com/Paintersrp/launchpad/internal/api"
	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/engine"
)

const defaultHistoryDepth = 10

// ControlAPI exposes tracked lifecycle state to the status server.
type ControlAPI struct {
	tracker  *statusTracker
	coord    *engine.Coordinator
	manifest func() *config.Manifest
	focus    func()
}

// NewControlAPI constructs a ControlAPI. coord and manifest may be nil.
func NewControlAPI(tracker *statusTracker, coord *engine.Coordinator, manifest func() *config.Manifest) *ControlAPI {
	if tracker == nil {
		return nil
	}
	return &ControlAPI{tracker: tracker, coord: coord, manifest: manifest}
}

// Status returns every tracked service in start order.
func (c *ControlAPI) Status(ctx stdcontext.Context) (*api.StatusReport, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	snapshot := c.tracker.Snapshot()
	services := make([]api.ServiceReport, 0, len(snapshot))
	for _, status := range snapshot {
		services = append(services, c.report(status))
	}

	report := &api.StatusReport{
		Shutdown:    engine.StateRunning.String(),
		GeneratedAt: time.Now(),
		Services:    services,
	}
	if c.coord != nil {
		report.Shutdown = c.coord.State().String()
	}
	if c.manifest != nil {
		if m := c.manifest(); m != nil {
			report.Source = m.Source
			report.Version = m.Version
		}
	}
	return report, nil
}

// Service returns the tracked state of one service.
func (c *ControlAPI) Service(ctx stdcontext.Context, name string) (*api.ServiceReport, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	status, ok := c.tracker.Lookup(name)
	if !ok {
		if len(c.tracker.Names()) == 0 {
			return nil, api.ErrNotStarted
		}
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownService, name)
	}
	report := c.report(status)
	return &report, nil
}

// SetFocusHandler installs the function Focus calls. Headless launchers leave
// it unset.
func (c *ControlAPI) SetFocusHandler(fn func()) {
	c.focus = fn
}

// Focus brings the launcher window forward.
func (c *ControlAPI) Focus(ctx stdcontext.Context) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if c.focus == nil {
		return api.ErrNoWindow
	}
	c.focus()
	return nil
}

func (c *ControlAPI) report(status ServiceStatus) api.ServiceReport {
	history := c.tracker.History(status.Name, defaultHistoryDepth)
	transitions := make([]api.ServiceTransition, 0, len(history))
	for _, entry := range history {
		transitions = append(transitions, api.ServiceTransition{
			Timestamp: entry.Timestamp,
			Event:     entry.Event,
			Status:    entry.Status,
			Message:   entry.Message,
		})
	}
	return api.ServiceReport{
		Name:      status.Name,
		Status:    status.Status,
		Ready:     status.Ready,
		URL:       status.URL,
		Message:   status.Message,
		FirstSeen: status.FirstSeen,
		LastEvent: status.LastEvent,
		History:   transitions,
	}
}

func ctxErr(ctx stdcontext.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ api.Controller = (*ControlAPI)(nil)
