//go:build !windows

package procdir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// Linux truncates the kernel comm name to 15 bytes.
const commNameLimit = 15

type psDirectory struct {
	self int
}

func newPlatformDirectory() Directory {
	return &psDirectory{self: os.Getpid()}
}

func (d *psDirectory) ListPIDs(ctx context.Context, image string) ([]int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	var pids []int
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == d.self {
			continue
		}
		// Processes may exit while we iterate; those lookups fail and are skipped.
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if matchesImage(ctx, p, name, image) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func matchesImage(ctx context.Context, p *process.Process, name, image string) bool {
	if name == image {
		return true
	}
	if len(name) < commNameLimit || len(image) <= len(name) || !strings.HasPrefix(image, name) {
		return false
	}
	exe, err := p.ExeWithContext(ctx)
	if err != nil {
		return false
	}
	return filepath.Base(exe) == image
}

func (d *psDirectory) Terminate(ctx context.Context, pid int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("lookup pid %d: %w", pid, err)
	}
	if err := p.KillWithContext(ctx); err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

// isGone reports errors meaning the process exited before it could be killed.
func isGone(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) ||
		errors.Is(err, os.ErrProcessDone) ||
		errors.Is(err, syscall.ESRCH)
}
