// Package atomicfile implements crash-safe file replacement.
//
// A write goes to a hidden temporary file in the destination directory, is
// flushed and fsynced, and is then renamed over the target. Readers observe
// either the complete old contents or the complete new contents, never a
// partial write. The temporary file is created with owner-only permissions
// (0600) so secrets are never world-readable, even transiently.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// Sentinel errors returned by WriteFile. Callers match with errors.Is; the
// wrapped chain carries the underlying OS error.
var (
	// ErrCreate indicates the temporary file could not be created.
	ErrCreate = errors.New("atomicfile: failed to create temporary file")

	// ErrWrite indicates the producer callback failed.
	ErrWrite = errors.New("atomicfile: failed to write temporary file")

	// ErrSync indicates fsync of the temporary file failed. The target is
	// untouched when this is returned.
	ErrSync = errors.New("atomicfile: failed to sync temporary file")

	// ErrRename indicates the final rename over the target failed.
	ErrRename = errors.New("atomicfile: failed to replace target file")
)

// tempMode is the permission set for freshly written files.
const tempMode fs.FileMode = 0600

// Options controls WriteFile behavior.
type Options struct {
	// PreservePermissions restores the permission bits of an existing target
	// after the rename. When false, or when the target does not yet exist,
	// the file keeps the 0600 temporary permissions.
	PreservePermissions bool
}

// WriteFile atomically replaces the file at target with content produced by
// write.
//
// The callback receives the open temporary file and writes the complete new
// contents to it. If the callback or any later step fails, the temporary
// file is removed and the target is left exactly as it was.
func WriteFile(target string, opts Options, write func(f *os.File) error) error {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	tmpPath := filepath.Join(dir, "."+base+".tmp")

	// Capture existing permissions before touching anything.
	var prevMode fs.FileMode
	havePrev := false
	if opts.PreservePermissions {
		if info, err := os.Stat(target); err == nil {
			prevMode = info.Mode().Perm()
			havePrev = true
		}
	}

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, tempMode)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCreate, tmpPath, err)
	}

	cleanup := func() {
		f.Close()
		os.Remove(tmpPath)
	}

	if err := write(f); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	// Durability: data must reach disk before the rename publishes it.
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %v", ErrSync, tmpPath, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrSync, tmpPath, err)
	}

	if err := rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %v", ErrRename, target, err)
	}

	// Best effort: a vault that saved durably but lost custom permission
	// bits is still a successful save.
	if havePrev && prevMode != tempMode {
		_ = os.Chmod(target, prevMode)
	}

	return nil
}

// rename moves tmp over target. POSIX rename replaces atomically; Windows
// refuses to rename onto an existing file, so the target is removed first.
// The remove-then-rename window on Windows is the closest the platform
// offers to an atomic replace.
func rename(tmp, target string) error {
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(target); err == nil {
			if err := os.Remove(target); err != nil {
				return err
			}
		}
	}
	return os.Rename(tmp, target)
}
