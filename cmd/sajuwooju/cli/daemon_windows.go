//go:build windows

package cli

import (
	"os"
	"os/exec"
	"syscall"
)

// detachProcess puts the daemon child in a new process group so console
// Ctrl+C in the launching window does not reach it. Long-running Windows
// deployments should use a service wrapper instead of --daemon.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// processAlive relies on FindProcess opening a handle, which fails for a
// PID that no longer exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}

// signalShutdown terminates the server. Windows has no SIGTERM, so open
// connections are not drained.
func signalShutdown(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
