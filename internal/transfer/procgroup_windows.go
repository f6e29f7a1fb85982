//go:build windows

package transfer

import "os/exec"

// setupProcessGroup is a no-op on Windows, which has no Unix process-group
// concept; cmd.Process.Kill() via the default Cancel behavior is relied on
// instead.
func setupProcessGroup(cmd *exec.Cmd) {
}
