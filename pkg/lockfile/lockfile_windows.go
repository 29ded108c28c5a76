//go:build windows

package lockfile

import (
	"golang.org/x/sys/windows"
)

// pidAlive reports whether a process with the given PID exists on this host.
// A handle that opens at all, or is denied for permissions, means the
// process exists; a still-open handle whose exit code is no longer
// STILL_ACTIVE means it already terminated.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return err == windows.ERROR_ACCESS_DENIED
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return true
	}
	return code == windows.STILL_ACTIVE
}
