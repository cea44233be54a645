package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/metrics"
	"github.com/Paintersrp/launchpad/internal/runtime"
	"github.com/Paintersrp/launchpad/internal/runtime/procdir"
)

// DefaultSettleDelay separates stale-instance termination from the new spawn.
const DefaultSettleDelay = time.Second

// Option configures a Launcher.
type Option func(*Launcher)

// WithSettleDelay overrides the post-termination settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(l *Launcher) {
		if d >= 0 {
			l.settle = d
		}
	}
}

// WithSleep replaces the suspension function used for the settle delay.
func WithSleep(fn runtime.SleepFunc) Option {
	return func(l *Launcher) {
		if fn != nil {
			l.sleep = fn
		}
	}
}

// WithLogger sets the logger used for launch progress.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Launcher) {
		if log != nil {
			l.log = log
		}
	}
}

// Launcher starts services as local processes and records them in a registry.
type Launcher struct {
	dir      procdir.Directory
	registry *runtime.Registry

	settle time.Duration
	sleep  runtime.SleepFunc
	log    logrus.FieldLogger
}

var _ runtime.Launcher = (*Launcher)(nil)

// New constructs a Launcher that uses dir for stale-instance cleanup and
// records successful launches in reg.
func New(dir procdir.Directory, reg *runtime.Registry, opts ...Option) *Launcher {
	l := &Launcher{
		dir:      dir,
		registry: reg,
		settle:   DefaultSettleDelay,
		sleep:    runtime.Sleep,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch terminates stale instances of svc.Executable, waits the settle delay,
// and spawns a new detached process. It returns once the process has started.
func (l *Launcher) Launch(ctx context.Context, svc *config.Service) error {
	if svc == nil {
		return errors.New("launch: service is nil")
	}
	log := l.log.WithFields(logrus.Fields{
		logging.ServiceKey:    svc.Name,
		logging.ExecutableKey: svc.Executable,
	})

	n, err := procdir.TerminateByName(ctx, l.dir, svc.Executable, log)
	if err != nil {
		log.WithError(err).Warn("stale instance cleanup failed")
	} else if n > 0 {
		log.WithField("count", n).Info("terminated stale instances")
	}

	if err := l.sleep(ctx, l.settle); err != nil {
		return fmt.Errorf("launch %s: %w", svc.Name, err)
	}

	path := svc.ExecutablePath()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		metrics.IncLaunch(svc.Name, metrics.LaunchResultNotFound)
		launchErr := &runtime.LaunchError{Service: svc.Name, Path: path, Kind: runtime.ErrExecutableNotFound}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			launchErr.Err = err
		}
		return launchErr
	}

	env, err := buildEnv(svc)
	if err != nil {
		metrics.IncLaunch(svc.Name, metrics.LaunchResultFailed)
		return err
	}

	// The child must outlive ctx, so exec.CommandContext is not used here.
	cmd := exec.Command(path, svc.Arguments...)
	cmd.Dir = svc.WorkingDirectory
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureCmdSysProcAttr(cmd, svc.ShowWindow)

	if err := cmd.Start(); err != nil {
		metrics.IncLaunch(svc.Name, metrics.LaunchResultFailed)
		return &runtime.LaunchError{Service: svc.Name, Path: path, Kind: runtime.ErrSpawnFailed, Err: err}
	}
	pid := cmd.Process.Pid

	go func() {
		_ = cmd.Wait()
	}()

	l.registry.Insert(svc.Name, svc.Executable)
	metrics.IncLaunch(svc.Name, metrics.LaunchResultStarted)
	log.WithField(logging.PIDKey, pid).Info("service process started")
	return nil
}
