//go:build windows

package procdir

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a running process.
const stillActive = 259

type tasklistDirectory struct {
	run func(ctx context.Context, image string) ([]byte, error)
}

func newPlatformDirectory() Directory {
	return &tasklistDirectory{run: runTasklist}
}

func runTasklist(ctx context.Context, image string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "tasklist", "/FI", "IMAGENAME eq "+image, "/FO", "CSV", "/NH")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	return cmd.Output()
}

func (d *tasklistDirectory) ListPIDs(ctx context.Context, image string) ([]int, error) {
	out, err := d.run(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("tasklist: %w", err)
	}
	return ParseTasklist(DecodeConsoleOutput(out), image)
}

func (d *tasklistDirectory) Terminate(ctx context.Context, pid int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// OpenProcess rejects PIDs that no longer exist.
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return nil
		}
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	if err := windows.TerminateProcess(handle, 1); err != nil {
		var exitCode uint32
		if windows.GetExitCodeProcess(handle, &exitCode) == nil && exitCode != stillActive {
			return nil
		}
		return fmt.Errorf("terminate process %d: %w", pid, err)
	}
	return nil
}
