// Package procdir finds and terminates operating system processes by
// executable image name.
//
// Nothing here holds a handle to a process the launcher started. Every lookup
// re-queries the process table, so a child that re-executed itself, restarted,
// or outlived a previous launcher run is still found as long as it runs under
// the same image name.
//
// Each target platform gets its own Directory implementation selected at build
// time: gopsutil's process table on Unix-like systems, and tasklist plus
// TerminateProcess on Windows.
package procdir

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/metrics"
)

// Directory exposes the two process table primitives the launcher needs.
type Directory interface {
	// ListPIDs returns every PID whose image name exactly matches image.
	// An empty result is not an error.
	ListPIDs(ctx context.Context, image string) ([]int, error)

	// Terminate forcefully ends pid. A process that already exited is
	// reported as success.
	Terminate(ctx context.Context, pid int) error
}

// New returns the Directory implementation for the current platform.
func New() Directory {
	return newPlatformDirectory()
}

// TerminateByName terminates every process running under image and returns
// how many were terminated. Per-PID failures are logged and skipped because the
// process may exit on its own between listing and terminating. Only a failure
// to list the process table is returned.
func TerminateByName(ctx context.Context, dir Directory, image string, log logrus.FieldLogger) (int, error) {
	log = logging.OrDiscard(log).WithField(logging.ExecutableKey, image)

	pids, err := dir.ListPIDs(ctx, image)
	if err != nil {
		return 0, fmt.Errorf("list %s processes: %w", image, err)
	}
	if len(pids) == 0 {
		log.Debug("no running processes found")
		return 0, nil
	}

	killed := 0
	for _, pid := range pids {
		pidLog := log.WithField(logging.PIDKey, pid)
		if err := dir.Terminate(ctx, pid); err != nil {
			pidLog.WithError(err).Warn("terminate process failed")
			continue
		}
		killed++
		pidLog.Info("terminated process")
	}
	metrics.AddTerminated(image, killed)
	return killed, nil
}
