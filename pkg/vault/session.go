// Package vault implements the session and persistence layer of a local
// encrypted credential vault.
//
// A Session holds at most one open vault: the decrypted tree, the
// credentials that unlocked it, and the cross-process file lock protecting
// the file on disk. All tree mutations go through Session methods under a
// single internal mutex; persistence goes through the codec and an atomic
// replace-in-place write.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mithrilvault/mithrilctl/pkg/atomicfile"
	"github.com/mithrilvault/mithrilctl/pkg/lockfile"
	"github.com/mithrilvault/mithrilctl/pkg/secure"
)

// Session is the top-level orchestrator over one vault file.
//
// Sessions are constructed values, not process globals: tests and embedders
// may run independent sessions side by side, each arbitrating its own vault
// file through the file lock.
type Session struct {
	mu    sync.Mutex
	codec Codec

	tree        *Tree
	path        string
	password    *secure.String
	keyfilePath string
	version     string
	modified    bool
	lock        *lockfile.Lock
}

// NewSession creates a closed session using the given codec.
func NewSession(codec Codec) *Session {
	return &Session{codec: codec}
}

// lockOptions identifies this application in lock sidecars.
func lockOptions() lockfile.Options {
	return lockfile.Options{Application: AppName, Version: AppVersion}
}

// Open unlocks the vault at path and transitions the session to Open.
//
// The file lock is acquired before the codec ever sees the file, so a
// locking failure never costs a key derivation, and a codec failure
// releases the lock again.
func (s *Session) Open(path string, creds Credentials) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree != nil {
		return Info{}, ErrAlreadyOpen
	}
	if !creds.Provided() {
		return Info{}, ErrNoCredentials
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Info{}, fmt.Errorf("vault: cannot access %s: %w", path, err)
	}

	lock, err := lockfile.Acquire(path, lockOptions())
	if err != nil {
		return Info{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		lock.Release()
		return Info{}, fmt.Errorf("vault: failed to read %s: %w", path, err)
	}

	tree, version, err := s.codec.Decode(data, creds)
	if err != nil {
		lock.Release()
		return Info{}, err
	}

	s.open(path, tree, version, creds, lock)
	return s.info(), nil
}

// Create builds a new vault at path and transitions the session to Open
// without re-reading the file from disk.
func (s *Session) Create(path string, creds Credentials, opts CreateOptions) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree != nil {
		return Info{}, ErrAlreadyOpen
	}
	if !creds.Provided() {
		return Info{}, ErrNoCredentials
	}
	if _, err := os.Stat(path); err == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrFileExists, path)
	}

	// Creation locks the path before the file exists, so two concurrent
	// creates cannot interleave their first writes.
	lock, err := lockfile.Acquire(path, lockOptions())
	if err != nil {
		return Info{}, err
	}

	name := opts.Name
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	tree := NewTree(name)
	tree.Description = opts.Description
	tree.Generator = AppName
	if opts.KDF != nil {
		tree.KDF = *opts.KDF
	}
	if opts.DefaultGroups {
		now := time.Now().UTC()
		for _, groupName := range DefaultGroupNames {
			g := &Group{Name: groupName, Created: now, Modified: now}
			if err := tree.AddGroup(tree.Root().ID, g); err != nil {
				lock.Release()
				return Info{}, err
			}
		}
	}

	data, err := s.codec.Encode(tree, creds)
	if err != nil {
		lock.Release()
		return Info{}, err
	}

	// New files always get restrictive permissions.
	if err := writeVault(path, data, false); err != nil {
		lock.Release()
		return Info{}, err
	}

	version := "4.0"
	if fi, err := s.codec.Inspect(data); err == nil && fi.Version != "" {
		version = fi.Version
	}

	s.open(path, tree, version, creds, lock)
	return s.info(), nil
}

// Save persists the open vault back to its path.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return ErrNotOpen
	}
	creds := s.credentials()
	if !creds.Provided() {
		return ErrNoCredentials
	}

	data, err := s.codec.Encode(s.tree, creds)
	if err != nil {
		return err
	}
	// Re-saving an existing vault keeps whatever permissions the user set
	// on the file.
	if err := writeVault(s.path, data, true); err != nil {
		return err
	}
	s.modified = false
	return nil
}

// SaveAs persists the open vault to a new path, optionally under a new
// password, and migrates the file lock so the old path is released.
//
// The lock on the new path is taken before anything is written and the old
// lock is dropped only after the write succeeds; a failure leaves the
// session exactly as it was.
func (s *Session) SaveAs(newPath string, newPassword *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return ErrNotOpen
	}

	creds := s.credentials()
	if newPassword != nil {
		creds.Password = *newPassword
	}
	if !creds.Provided() {
		return ErrNoCredentials
	}

	if newPath == s.path {
		// Same path: no lock migration, just a re-encrypt and save.
		data, err := s.codec.Encode(s.tree, creds)
		if err != nil {
			return err
		}
		if err := writeVault(s.path, data, true); err != nil {
			return err
		}
		s.setPassword(creds.Password)
		s.modified = false
		return nil
	}

	newLock, err := lockfile.Acquire(newPath, lockOptions())
	if err != nil {
		return err
	}

	data, err := s.codec.Encode(s.tree, creds)
	if err != nil {
		newLock.Release()
		return err
	}
	if err := writeVault(newPath, data, false); err != nil {
		newLock.Release()
		return err
	}

	s.lock.Release()
	s.lock = newLock
	s.path = newPath
	s.setPassword(creds.Password)
	s.keyfilePath = creds.KeyfilePath
	s.modified = false
	return nil
}

// Close drops the tree, credentials, and file lock. Unsaved changes are
// discarded; callers that care check Modified first.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return ErrNotOpen
	}

	s.tree.Destroy()
	s.tree = nil
	s.password.Destroy()
	s.password = nil
	s.keyfilePath = ""
	s.lock.Release()
	s.lock = nil
	s.path = ""
	s.version = ""
	s.modified = false
	return nil
}

// IsOpen reports whether the session holds an open vault.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree != nil
}

// Modified reports whether the open vault has unsaved changes.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// Info describes the open vault.
func (s *Session) Info() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return Info{}, ErrNotOpen
	}
	return s.info(), nil
}

// Stats returns aggregate counts over the open vault.
func (s *Session) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return Stats{}, ErrNotOpen
	}

	st := Stats{
		Groups:  s.tree.GroupCount(),
		Entries: s.tree.EntryCount(),
	}
	s.tree.WalkEntries(func(e *Entry) {
		if s.tree.InRecycleBin(e.GroupID) {
			st.RecycledEntries++
		}
	})
	return st, nil
}

// Config reports the open vault's format configuration.
func (s *Session) Config() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return Config{}, ErrNotOpen
	}
	return Config{Version: s.version, KDF: s.tree.KDF}, nil
}

// open installs the tree and supporting state. Callers hold s.mu.
func (s *Session) open(path string, tree *Tree, version string, creds Credentials, lock *lockfile.Lock) {
	s.tree = tree
	s.path = path
	s.setPassword(creds.Password)
	s.keyfilePath = creds.KeyfilePath
	s.version = version
	s.modified = false
	s.lock = lock
}

// info builds the Info projection. Callers hold s.mu with an open tree.
func (s *Session) info() Info {
	return Info{
		Path:        s.path,
		Name:        s.tree.Name,
		Description: s.tree.Description,
		Version:     s.version,
		Modified:    s.modified,
		RootGroupID: s.tree.Root().ID,
	}
}

// credentials reassembles the stored credentials. Callers hold s.mu.
func (s *Session) credentials() Credentials {
	return Credentials{Password: s.password.Value(), KeyfilePath: s.keyfilePath}
}

// setPassword replaces the stored password, wiping the previous one.
// Callers hold s.mu.
func (s *Session) setPassword(pw string) {
	s.password.Destroy()
	if pw == "" {
		s.password = nil
		return
	}
	s.password = secure.NewString(pw)
}

// writeVault persists serialized vault bytes through the atomic writer.
func writeVault(path string, data []byte, preservePermissions bool) error {
	return atomicfile.WriteFile(path, atomicfile.Options{PreservePermissions: preservePermissions}, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}
