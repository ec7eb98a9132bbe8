//go:build unix

package toolchain

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcessGroup starts cmd in its own process group and makes
// context cancellation terminate the whole group, so cargo's child
// processes (rustc, test binaries) do not outlive an aborted run.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// A negative pid addresses the process group.
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
}
