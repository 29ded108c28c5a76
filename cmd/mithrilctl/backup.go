package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/internal/kdbx"
	"github.com/mithrilvault/mithrilctl/pkg/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Vault backups",
	Long: `Manage timestamped copies of the vault file. Backups keep the vault's
own encryption; restoring replaces the vault atomically.`,
}

var (
	backupDir  string
	backupKeep int
)

// backupManager builds a manager that only accepts files with a valid
// vault header.
func backupManager() *backup.Manager {
	return &backup.Manager{
		Dir:    backupDir,
		Keep:   backupKeep,
		Verify: verifyVaultHeader,
	}
}

// verifyVaultHeader rejects content that does not start with a supported
// vault signature. Inspect reports invalidity through the returned info,
// not through its error.
func verifyVaultHeader(data []byte) error {
	info, err := kdbx.New().Inspect(data)
	if err != nil {
		return err
	}
	if !info.Valid {
		return errors.New("not a vault file")
	}
	if !info.Supported {
		return fmt.Errorf("unsupported vault format %s", info.Version)
	}
	return nil
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup of the vault file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := vaultPath()
		if err != nil {
			return err
		}
		target, err := backupManager().Create(path)
		if err != nil {
			return err
		}
		fmt.Printf("Backup written to %s\n", target)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := vaultPath()
		if err != nil {
			return err
		}
		backups, err := backupManager().List(path)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups")
			return nil
		}
		for _, b := range backups {
			fmt.Printf("%s  %d bytes  %s\n", b.Path, b.Size, b.Created.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Replace the vault file with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := vaultPath()
		if err != nil {
			return err
		}
		ok, err := confirm(fmt.Sprintf("Replace %s with %s?", path, args[0]))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := backupManager().Restore(args[0], path); err != nil {
			return err
		}
		fmt.Println("Vault restored")
		return nil
	},
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupDir, "dir", "", "Backups directory (defaults to one next to the vault)")
	backupCreateCmd.Flags().IntVar(&backupKeep, "keep", 0, "Copies to retain, oldest pruned first (0 uses the default, negative disables pruning)")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
