//go:build !windows

package transfer

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup puts the child process in its own process group and
// overrides cmd.Cancel to kill the whole group if the caller's context is
// cancelled mid-transfer. This prevents an orphaned transfer-tool
// grandchild from outliving the attempt that spawned it.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
}
