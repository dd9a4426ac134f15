//go:build !windows

package dap

import (
	"os/exec"
	"syscall"
)

// killProcessGroup kills a spawned adapter and everything under it.
// The adapter was started as a session leader, so signaling the negative
// PID reaches the whole group.
func killProcessGroup(pid int, cmd *exec.Cmd) error {
	if pid > 0 {
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			// ESRCH: already gone
			if err != syscall.ESRCH {
				return err
			}
		}
	} else if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			if err.Error() != "os: process already finished" {
				return err
			}
		}
	}
	return nil
}
