//go:build !windows

package cli

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// detachProcess starts the daemon child in its own session so closing the
// launching terminal does not deliver SIGHUP to it.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	// EPERM means the PID exists but belongs to another user.
	return err == nil || errors.Is(err, syscall.EPERM)
}

// signalShutdown asks the server to drain and exit; ListenAndServe handles
// SIGTERM with a graceful shutdown.
func signalShutdown(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
