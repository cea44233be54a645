package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Paintersrp/launchpad/internal/config"
)

var (
	// ErrExecutableNotFound reports that workingDirectory/executable does not exist.
	ErrExecutableNotFound = errors.New("executable not found")
	// ErrEnvFileNotFound reports that the configured env file does not exist.
	ErrEnvFileNotFound = errors.New("env file not found")
	// ErrSpawnFailed reports that the operating system refused to start the process.
	ErrSpawnFailed = errors.New("spawn failed")
)

// LaunchError is returned by Launcher implementations. Kind is one of the
// sentinel errors above so callers can branch with errors.Is.
type LaunchError struct {
	Service string
	Path    string
	Kind    error
	Err     error
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("launch %s: %v", e.Service, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LaunchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Launcher clears stale instances of a service's executable and starts a fresh
// process. It returns as soon as the process is spawned; readiness is the
// health prober's concern.
type Launcher interface {
	Launch(ctx context.Context, svc *config.Service) error
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, svc *config.Service) error

// Launch calls f(ctx, svc).
func (f LauncherFunc) Launch(ctx context.Context, svc *config.Service) error {
	return f(ctx, svc)
}

// SleepFunc suspends for d or until ctx is done. Components take one so tests
// can observe or skip settle delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d without blocking past ctx cancellation. Non-positive
// durations return immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
