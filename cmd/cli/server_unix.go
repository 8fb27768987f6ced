//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the agent in its own process group so it
// outlives the CLI's terminal
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
