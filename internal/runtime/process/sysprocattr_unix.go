//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// Unix children have no console to hide; showWindow only matters on Windows.
func configureCmdSysProcAttr(cmd *exec.Cmd, _ bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
