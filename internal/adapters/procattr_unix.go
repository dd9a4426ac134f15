//go:build !windows

package adapters

import (
	"os/exec"
	"syscall"
)

// setProcAttr makes the spawned adapter a session leader so the session
// manager can later kill its whole process tree at once.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
