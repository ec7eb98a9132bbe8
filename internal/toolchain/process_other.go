//go:build !unix

package toolchain

import "os/exec"

// configureProcessGroup is a no-op on platforms without process groups;
// exec.CommandContext kills the direct child on cancellation.
func configureProcessGroup(_ *exec.Cmd) {}
