// Package settings persists per-user application state: the recently
// opened vault list and UI defaults. Secrets never go through this
// package.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mithrilvault/mithrilctl/pkg/atomicfile"
)

// FileName is the settings file name inside the config directory.
const FileName = "settings.yaml"

// MaxRecentVaults bounds the recent list. The oldest entry falls off.
const MaxRecentVaults = 10

// Settings is the on-disk document.
type Settings struct {
	Version      int      `yaml:"version"`
	RecentVaults []string `yaml:"recent_vaults,omitempty"`
	LastVault    string   `yaml:"last_vault,omitempty"`
}

// ErrUnsupportedVersion is returned when the settings file was written by
// a newer release.
var ErrUnsupportedVersion = errors.New("settings: unsupported file version")

const currentVersion = 1

// Store reads and writes the settings file. Methods are safe for
// concurrent use within one process; cross-process writers last-win.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a store over an explicit file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath resolves the settings path under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: cannot resolve config directory: %w", err)
	}
	return filepath.Join(dir, "mithrilctl", FileName), nil
}

// Load reads the settings file. A missing file yields empty settings.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// TouchVault records a vault path as most recently used and persists.
func (s *Store) TouchVault(vaultPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}

	recent := make([]string, 0, len(cfg.RecentVaults)+1)
	recent = append(recent, vaultPath)
	for _, p := range cfg.RecentVaults {
		if p != vaultPath {
			recent = append(recent, p)
		}
	}
	if len(recent) > MaxRecentVaults {
		recent = recent[:MaxRecentVaults]
	}
	cfg.RecentVaults = recent
	cfg.LastVault = vaultPath
	return s.save(cfg)
}

// ForgetVault drops a vault path from the recent list and persists.
func (s *Store) ForgetVault(vaultPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}

	recent := cfg.RecentVaults[:0]
	for _, p := range cfg.RecentVaults {
		if p != vaultPath {
			recent = append(recent, p)
		}
	}
	cfg.RecentVaults = recent
	if cfg.LastVault == vaultPath {
		cfg.LastVault = ""
	}
	return s.save(cfg)
}

func (s *Store) load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{Version: currentVersion}, nil
		}
		return Settings{}, fmt.Errorf("settings: read %s: %w", s.path, err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	if cfg.Version > currentVersion {
		return Settings{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cfg.Version)
	}
	cfg.Version = currentVersion
	return cfg, nil
}

func (s *Store) save(cfg Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("settings: create config directory: %w", err)
	}
	return atomicfile.WriteFile(s.path, atomicfile.Options{}, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}
