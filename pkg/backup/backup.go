// Package backup creates and restores timestamped copies of vault files.
//
// A backup is a byte-for-byte copy of the vault file, so it carries the
// vault's own encryption; no second layer is added. Copies live in a
// backups directory next to the vault, named after the vault with a
// timestamp, and old copies beyond the retention count are pruned after
// each new backup.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mithrilvault/mithrilctl/pkg/atomicfile"
)

// DefaultKeep is the retention count used when Manager.Keep is zero.
const DefaultKeep = 10

const timestampLayout = "20060102-150405"

var (
	// ErrNotFound indicates the requested backup file does not exist.
	ErrNotFound = errors.New("backup: backup file not found")

	// ErrVerifyFailed indicates the file content did not pass verification.
	ErrVerifyFailed = errors.New("backup: verification failed")
)

// Info describes one backup copy.
type Info struct {
	Path    string
	Size    int64
	Created time.Time
}

// Manager creates, lists, and restores backups of one vault file.
type Manager struct {
	// Dir is the backups directory. Empty means a "backups" directory
	// next to the vault file.
	Dir string

	// Keep is how many copies to retain, oldest pruned first. Zero
	// means DefaultKeep; negative disables pruning.
	Keep int

	// Verify checks file content before a copy is written or restored.
	// Nil skips verification.
	Verify func(data []byte) error
}

// Create copies the vault file into the backups directory and prunes old
// copies. It returns the path of the new backup.
func (m *Manager) Create(vaultPath string) (string, error) {
	data, err := os.ReadFile(vaultPath)
	if err != nil {
		return "", fmt.Errorf("backup: read vault: %w", err)
	}
	if err := m.check(data); err != nil {
		return "", err
	}

	dir := m.dir(vaultPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("backup: create directory: %w", err)
	}

	target := m.freshPath(dir, vaultPath, time.Now())
	err = atomicfile.WriteFile(target, atomicfile.Options{}, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
	if err != nil {
		return "", err
	}

	if err := m.prune(vaultPath); err != nil {
		return target, err
	}
	return target, nil
}

// List returns the backups of the vault, newest first.
func (m *Manager) List(vaultPath string) ([]Info, error) {
	dir := m.dir(vaultPath)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: read directory: %w", err)
	}

	prefix, ext := splitName(vaultPath)
	var out []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Path:    filepath.Join(dir, name),
			Size:    fi.Size(),
			Created: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path > out[j].Path
	})
	return out, nil
}

// Restore replaces the vault file with the content of the named backup.
// The replacement is atomic; a failed restore leaves the vault untouched.
func (m *Manager) Restore(backupPath, vaultPath string) error {
	data, err := os.ReadFile(backupPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, backupPath)
	}
	if err != nil {
		return fmt.Errorf("backup: read backup: %w", err)
	}
	if err := m.check(data); err != nil {
		return err
	}

	return atomicfile.WriteFile(vaultPath, atomicfile.Options{PreservePermissions: true}, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func (m *Manager) check(data []byte) error {
	if m.Verify == nil {
		return nil
	}
	if err := m.Verify(data); err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	return nil
}

func (m *Manager) dir(vaultPath string) string {
	if m.Dir != "" {
		return m.Dir
	}
	return filepath.Join(filepath.Dir(vaultPath), "backups")
}

func (m *Manager) keep() int {
	if m.Keep == 0 {
		return DefaultKeep
	}
	return m.Keep
}

// freshPath picks a timestamped name that does not collide with an
// existing copy from the same second.
func (m *Manager) freshPath(dir, vaultPath string, now time.Time) string {
	prefix, ext := splitName(vaultPath)
	stamp := now.UTC().Format(timestampLayout)
	path := filepath.Join(dir, fmt.Sprintf("%s-%s%s", prefix, stamp, ext))
	for n := 2; ; n++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.%d%s", prefix, stamp, n, ext))
	}
}

// prune removes the oldest copies beyond the retention count.
func (m *Manager) prune(vaultPath string) error {
	keep := m.keep()
	if keep < 0 {
		return nil
	}
	backups, err := m.List(vaultPath)
	if err != nil {
		return err
	}
	for _, old := range backups[min(keep, len(backups)):] {
		if err := os.Remove(old.Path); err != nil {
			return fmt.Errorf("backup: prune %s: %w", old.Path, err)
		}
	}
	return nil
}

func splitName(vaultPath string) (prefix, ext string) {
	base := filepath.Base(vaultPath)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}
