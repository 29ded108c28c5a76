//go:build !windows

package lockfile

import (
	"errors"
	"syscall"
)

// pidAlive reports whether a process with the given PID exists on this host.
// Signal 0 performs the existence check without delivering anything; EPERM
// still means the process exists, just under another user.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
