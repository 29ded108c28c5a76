// Package main provides the mithrilctl CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/internal/kdbx"
	"github.com/mithrilvault/mithrilctl/internal/settings"
	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// Global flags shared by every vault-touching command.
var (
	flagVault   string
	flagKeyfile string
)

var rootCmd = &cobra.Command{
	Use:          "mithrilctl",
	Short:        "mithrilctl manages local encrypted credential vaults",
	Long:         `A command-line manager for KDBX password vault files.`,
	Version:      vault.AppVersion,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "Path to the vault file")
	rootCmd.PersistentFlags().StringVar(&flagKeyfile, "keyfile", "", "Path to an additional key file")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(entryCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(rekeyCmd)
	rootCmd.AddCommand(saveAsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// vaultPath resolves the vault file path from the flag or the last used
// vault in the settings file.
func vaultPath() (string, error) {
	if flagVault != "" {
		return flagVault, nil
	}
	path, err := settings.DefaultPath()
	if err != nil {
		return "", err
	}
	cfg, err := settings.NewStore(path).Load()
	if err != nil {
		return "", err
	}
	if cfg.LastVault == "" {
		return "", fmt.Errorf("no vault specified: pass --vault or open one first")
	}
	return cfg.LastVault, nil
}

// withOpenVault opens the vault, runs fn, and closes the session. When fn
// leaves unsaved changes behind, they are persisted before the close.
func withOpenVault(fn func(s *vault.Session) error) error {
	path, err := vaultPath()
	if err != nil {
		return err
	}

	password, err := promptPassword("Enter master password: ")
	if err != nil {
		return err
	}

	s := vault.NewSession(kdbx.New())
	if _, err := s.Open(path, vault.Credentials{Password: password, KeyfilePath: flagKeyfile}); err != nil {
		recordOp(path, audit.OpVaultOpenFailed, "", err)
		return err
	}
	defer s.Close()
	recordOp(path, audit.OpVaultOpen, "", nil)

	if err := fn(s); err != nil {
		return err
	}
	if s.Modified() {
		if err := s.Save(); err != nil {
			recordOp(path, audit.OpVaultSave, "", err)
			return err
		}
		recordOp(path, audit.OpVaultSave, "", nil)
	}
	rememberVault(path)
	return nil
}

// rememberVault records the vault in the recent list. Settings are
// best-effort; a failure never blocks the vault operation itself.
func rememberVault(path string) {
	settingsPath, err := settings.DefaultPath()
	if err != nil {
		return
	}
	_ = settings.NewStore(settingsPath).TouchVault(path)
}
