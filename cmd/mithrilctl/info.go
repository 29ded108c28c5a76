package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/internal/kdbx"
	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show vault metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			info, err := s.Info()
			if err != nil {
				return err
			}
			fmt.Printf("Path:        %s\n", info.Path)
			fmt.Printf("Name:        %s\n", info.Name)
			if info.Description != "" {
				fmt.Printf("Description: %s\n", info.Description)
			}
			fmt.Printf("Format:      kdbx %s\n", info.Version)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vault entry and group counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			st, err := s.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Groups:           %d\n", st.Groups)
			fmt.Printf("Entries:          %d\n", st.Entries)
			fmt.Printf("Recycled entries: %d\n", st.RecycledEntries)
			return nil
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the vault's format configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			cfg, err := s.Config()
			if err != nil {
				return err
			}
			fmt.Printf("Format version:   kdbx %s\n", cfg.Version)
			fmt.Printf("KDF memory:       %d KiB\n", cfg.KDF.MemoryKiB)
			fmt.Printf("KDF iterations:   %d\n", cfg.KDF.Iterations)
			fmt.Printf("KDF parallelism:  %d\n", cfg.KDF.Parallelism)
			return nil
		})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Classify a file by its vault header, without credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		info, err := kdbx.New().Inspect(data)
		if err != nil {
			return err
		}
		switch {
		case !info.Valid:
			fmt.Println("Not a vault file")
		case !info.Supported:
			fmt.Printf("Vault file, unsupported version %s\n", info.Version)
		default:
			fmt.Printf("Vault file, kdbx %s\n", info.Version)
		}
		return nil
	},
}

var rekeyCmd = &cobra.Command{
	Use:   "rekey",
	Short: "Change the master password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			newPassword, err := promptNewPassword()
			if err != nil {
				return err
			}
			info, err := s.Info()
			if err != nil {
				return err
			}
			if err := s.SaveAs(info.Path, &newPassword); err != nil {
				recordSessionOp(s, audit.OpVaultRekey, "", err)
				return err
			}
			recordSessionOp(s, audit.OpVaultRekey, "", nil)
			fmt.Println("Master password changed")
			return nil
		})
	},
}

var saveAsRekey bool

var saveAsCmd = &cobra.Command{
	Use:   "save-as <path>",
	Short: "Save the vault to a new path",
	Long: `Save the open vault to a new path. The lock moves with the vault, so
the old path is released; --rekey also prompts for a new master password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			var newPassword *string
			if saveAsRekey {
				pw, err := promptNewPassword()
				if err != nil {
					return err
				}
				newPassword = &pw
			}
			if err := s.SaveAs(args[0], newPassword); err != nil {
				recordSessionOp(s, audit.OpVaultSave, args[0], err)
				return err
			}
			recordSessionOp(s, audit.OpVaultSave, args[0], nil)
			rememberVault(args[0])
			fmt.Printf("Vault saved to %s\n", args[0])
			return nil
		})
	},
}

func init() {
	saveAsCmd.Flags().BoolVar(&saveAsRekey, "rekey", false, "Also change the master password")
}
