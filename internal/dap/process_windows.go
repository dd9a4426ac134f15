//go:build windows

package dap

import (
	"os/exec"
)

// killProcessGroup kills a spawned adapter. Windows has no Unix-style
// process groups, so only the process itself is signaled.
func killProcessGroup(pid int, cmd *exec.Cmd) error {
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			if err.Error() != "os: process already finished" {
				return err
			}
		}
	}
	return nil
}
