// Package lockfile implements cross-process single-writer locking for vault
// files.
//
// A held lock is two things at once: a sidecar metadata file next to the
// vault ("vault.kdbx.lock") describing the holder, and an OS advisory lock
// on that sidecar. The advisory lock is authoritative between live,
// cooperating processes; the sidecar survives crashes and lets a later
// process tell a live holder from a dead one.
//
// The sidecar is plain "Key: Value" lines so a stuck lock can be diagnosed
// with any text editor:
//
//	PID: 4242
//	Application: MithrilVault
//	Version: 1.2.0
//	Opened: 2026-08-29T10:15:00Z
//	Host: workstation-7
//
// Older releases wrote JSON sidecars; those are still accepted on read.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Suffix is appended to the vault path to form the sidecar path.
const Suffix = ".lock"

// Defaults used when the caller does not identify itself.
const (
	DefaultApplication = "MithrilVault"
	UnknownVersion     = "Unknown"
)

// Sentinel errors returned by Acquire.
var (
	// ErrAlreadyLocked indicates this process already holds the lock.
	ErrAlreadyLocked = errors.New("lockfile: vault is already locked by this process")

	// ErrLocked indicates a live process elsewhere holds the lock.
	ErrLocked = errors.New("lockfile: vault is locked by another process")

	// ErrAcquire indicates lock acquisition failed for a non-contention
	// reason, such as an unwritable directory.
	ErrAcquire = errors.New("lockfile: failed to acquire lock")
)

// Info describes the process that wrote a sidecar.
type Info struct {
	PID         int       `json:"pid"`
	Application string    `json:"application"`
	Version     string    `json:"version"`
	OpenedAt    time.Time `json:"opened_at"`
	Hostname    string    `json:"hostname"`
}

// State classifies a vault's lock at a point in time.
type State int

const (
	// Available means no sidecar exists.
	Available State = iota

	// HeldBySelf means the sidecar names this process on this host.
	HeldBySelf

	// HeldByOther means the sidecar names a process that may be alive:
	// either a live process on this host, or any process on another host,
	// where liveness cannot be probed.
	HeldByOther

	// Stale means the sidecar is unreadable, corrupted, or names a process
	// on this host that no longer exists. A stale lock is safe to break.
	Stale
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case HeldBySelf:
		return "held by this process"
	case HeldByOther:
		return "held by another process"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Status is the result of a lock inspection.
type Status struct {
	State  State
	Holder *Info // nil when Available or when the sidecar was unparseable
}

// PathFor returns the sidecar path for a vault file.
func PathFor(vaultPath string) string {
	return vaultPath + Suffix
}

// Check classifies the lock protecting vaultPath without taking any locks
// or modifying anything.
//
// Corruption is never an error here: a sidecar that cannot be parsed is
// reported as Stale, because a half-written or garbled sidecar is exactly
// what a crashed writer leaves behind.
func Check(vaultPath string) Status {
	data, err := os.ReadFile(PathFor(vaultPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{State: Available}
		}
		return Status{State: Stale}
	}

	info, err := parseInfo(data)
	if err != nil {
		return Status{State: Stale}
	}

	host, _ := os.Hostname()
	if info.Hostname == host {
		if info.PID == os.Getpid() {
			return Status{State: HeldBySelf, Holder: info}
		}
		if !pidAlive(info.PID) {
			return Status{State: Stale, Holder: info}
		}
	}
	// A lock from another host cannot be probed for liveness. Assume the
	// holder is alive rather than risk two writers.
	return Status{State: HeldByOther, Holder: info}
}

// Options identifies the acquiring application in the sidecar.
type Options struct {
	Application string
	Version     string
}

// Acquire takes the lock protecting vaultPath.
//
// Stale locks are broken silently. A lock held by a live process fails with
// ErrLocked carrying the holder's identity; re-acquiring a lock this process
// already holds fails with ErrAlreadyLocked.
func Acquire(vaultPath string, opts Options) (*Lock, error) {
	sidecar := PathFor(vaultPath)

	status := Check(vaultPath)
	switch status.State {
	case HeldBySelf:
		return nil, ErrAlreadyLocked
	case HeldByOther:
		return nil, lockedError(status.Holder)
	case Stale:
		if err := os.Remove(sidecar); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: cannot remove stale sidecar %s: %v", ErrAcquire, sidecar, err)
		}
	}

	info := Info{
		PID:         os.Getpid(),
		Application: opts.Application,
		Version:     opts.Version,
		OpenedAt:    time.Now().UTC(),
	}
	if info.Application == "" {
		info.Application = DefaultApplication
	}
	if info.Version == "" {
		info.Version = UnknownVersion
	}
	info.Hostname, _ = os.Hostname()

	// The advisory lock comes before any write to the sidecar: a process
	// that loses the race between Check and TryLock must never clobber the
	// winner's metadata.
	fl, locked, err := tryFlock(sidecar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquire, err)
	}
	if !locked {
		// Lost a race with another process between Check and TryLock. The
		// sidecar, if readable by now, names the real holder.
		if st := Check(vaultPath); st.Holder != nil {
			return nil, lockedError(st.Holder)
		}
		return nil, ErrLocked
	}

	if err := writeSidecar(sidecar, info); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrAcquire, err)
	}

	return &Lock{vaultPath: vaultPath, sidecar: sidecar, fl: fl}, nil
}

// ForceUnlock removes the sidecar for vaultPath regardless of who holds it.
//
// This is the explicit user override for a lock Check reports as stale. It
// never probes liveness: forcing out a live holder is the caller's decision.
func ForceUnlock(vaultPath string) error {
	err := os.Remove(PathFor(vaultPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("lockfile: failed to remove sidecar: %w", err)
	}
	return nil
}

func lockedError(holder *Info) error {
	if holder == nil {
		return ErrLocked
	}
	return fmt.Errorf("%w: %s (PID %d) on %s since %s",
		ErrLocked, holder.Application, holder.PID, holder.Hostname,
		holder.OpenedAt.Format(time.RFC3339))
}

// writeSidecar overwrites the sidecar's contents under the held advisory
// lock, truncating first and fsyncing after so the holder's identity
// survives a crash.
func writeSidecar(path string, info Info) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(formatInfo(info)); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// formatInfo renders the sidecar in the canonical line format.
func formatInfo(info Info) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "PID: %d\n", info.PID)
	fmt.Fprintf(&b, "Application: %s\n", info.Application)
	fmt.Fprintf(&b, "Version: %s\n", info.Version)
	fmt.Fprintf(&b, "Opened: %s\n", info.OpenedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Host: %s\n", info.Hostname)
	return []byte(b.String())
}

// parseInfo reads either sidecar format. PID, Application, Opened and Host
// are required; a missing Version is reported as "Unknown".
func parseInfo(data []byte) (*Info, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.New("lockfile: empty sidecar")
	}

	if strings.HasPrefix(trimmed, "{") {
		var info Info
		if err := json.Unmarshal([]byte(trimmed), &info); err != nil {
			return nil, fmt.Errorf("lockfile: invalid legacy sidecar: %w", err)
		}
		return validateInfo(&info)
	}

	info := &Info{}
	seen := map[string]bool{}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("lockfile: malformed sidecar line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		seen[key] = true

		switch key {
		case "PID":
			pid, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("lockfile: invalid PID %q", value)
			}
			info.PID = pid
		case "Application":
			info.Application = value
		case "Version":
			info.Version = value
		case "Opened":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, fmt.Errorf("lockfile: invalid Opened timestamp %q", value)
			}
			info.OpenedAt = t
		case "Host":
			info.Hostname = value
		default:
			// Unknown keys are ignored for forward compatibility.
		}
	}

	for _, required := range []string{"PID", "Application", "Opened", "Host"} {
		if !seen[required] {
			return nil, fmt.Errorf("lockfile: sidecar missing %s", required)
		}
	}
	return validateInfo(info)
}

func validateInfo(info *Info) (*Info, error) {
	if info.PID <= 0 {
		return nil, fmt.Errorf("lockfile: invalid PID %d", info.PID)
	}
	if info.Version == "" {
		info.Version = UnknownVersion
	}
	return info, nil
}

// Lock represents a held vault lock.
type Lock struct {
	vaultPath string
	sidecar   string
	fl        flocker
	once      sync.Once
}

// flocker is the slice of *flock.Flock the Lock needs; narrowed for tests.
type flocker interface {
	Unlock() error
}

// VaultPath returns the vault file the lock protects.
func (l *Lock) VaultPath() string { return l.vaultPath }

// SidecarPath returns the sidecar file backing the lock.
func (l *Lock) SidecarPath() string { return l.sidecar }

// Release drops the advisory lock and removes the sidecar. It is idempotent
// and deliberately infallible: release runs on every teardown path, and a
// failure to delete a sidecar must never mask the error that triggered the
// teardown.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if l.fl != nil {
			_ = l.fl.Unlock()
		}
		_ = os.Remove(l.sidecar)
	})
}
