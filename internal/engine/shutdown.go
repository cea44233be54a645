package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/runtime"
	"github.com/Paintersrp/launchpad/internal/runtime/procdir"
)

// State is a phase of the shutdown state machine.
type State int32

const (
	StateRunning State = iota
	StateHiding
	StateCleaning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHiding:
		return "hiding"
	case StateCleaning:
		return "cleaning"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Window is the host surface hidden as soon as a close is requested.
type Window interface {
	Hide() error
}

// Releaser frees a residual platform resource during cleanup. Failures are
// logged and ignored.
type Releaser func(ctx context.Context) error

// Coordinator drives Running -> Hiding -> Cleaning -> Terminated exactly once.
type Coordinator struct {
	registry  *runtime.Registry
	dir       procdir.Directory
	window    Window
	releasers []Releaser
	opts      options

	state atomic.Int32
	done  chan struct{}
}

// NewCoordinator constructs a Coordinator. window may be nil for headless
// hosts.
func NewCoordinator(reg *runtime.Registry, dir procdir.Directory, window Window, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: reg,
		dir:      dir,
		window:   window,
		opts:     defaultOptions(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// AddReleaser registers a best-effort cleanup step. It must be called before
// RequestClose.
func (c *Coordinator) AddReleaser(r Releaser) {
	if r != nil {
		c.releasers = append(c.releasers, r)
	}
}

// State returns the current phase.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Done is closed once the coordinator has reached StateTerminated and called
// the exit function.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// RequestClose hides the window and starts cleanup in the background. It
// always returns true, meaning the host's default close action must be
// suppressed. Only the first call has any effect.
func (c *Coordinator) RequestClose() bool {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateHiding)) {
		c.opts.log.WithField(logging.StateKey, c.State().String()).Debug("close already requested")
		return true
	}
	c.opts.log.WithField(logging.StateKey, StateHiding.String()).Info("close requested")

	if c.window != nil {
		if err := c.hide(); err != nil {
			c.opts.log.WithError(err).Warn("hide window")
		}
	}

	go c.cleanup()
	return true
}

func (c *Coordinator) hide() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hide panicked: %v", r)
		}
	}()
	return c.window.Hide()
}

func (c *Coordinator) cleanup() {
	c.state.Store(int32(StateCleaning))
	log := c.opts.log.WithField(logging.StateKey, StateCleaning.String())
	ctx := context.Background()

	c.terminateAll(ctx, log)
	c.release(ctx, log)

	if err := c.opts.sleep(ctx, c.opts.grace); err != nil {
		log.WithError(err).Debug("grace delay interrupted")
	}

	c.state.Store(int32(StateTerminated))
	c.opts.log.WithField(logging.StateKey, StateTerminated.String()).Info("exiting")
	c.opts.exit(0)
	close(c.done)
}

func (c *Coordinator) terminateAll(ctx context.Context, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("process cleanup panicked")
		}
	}()
	if c.registry == nil || c.dir == nil {
		return
	}
	log.WithField("services", c.registry.Len()).Info("terminating launched services")
	seen := make(map[string]struct{})
	for _, entry := range c.registry.Snapshot() {
		if _, ok := seen[entry.Executable]; ok {
			continue
		}
		seen[entry.Executable] = struct{}{}

		entryLog := log.WithFields(logrus.Fields{
			logging.ServiceKey:    entry.Service,
			logging.ExecutableKey: entry.Executable,
		})
		n, err := procdir.TerminateByName(ctx, c.dir, entry.Executable, entryLog)
		if err != nil {
			entryLog.WithError(err).Warn("terminate service processes")
			continue
		}
		entryLog.WithField("count", n).Info("service processes terminated")
	}
}

func (c *Coordinator) release(ctx context.Context, log logrus.FieldLogger) {
	for i, r := range c.releasers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.WithField("releaser", i).WithField("panic", p).Warn("releaser panicked")
				}
			}()
			if err := r(ctx); err != nil {
				log.WithField("releaser", i).WithError(err).Warn("release residual resource")
			}
		}()
	}
}
