package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/internal/settings"
	"github.com/mithrilvault/mithrilctl/pkg/lockfile"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Vault lock operations",
}

var lockStatusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Show who holds the vault's file lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := lockfile.Check(args[0])
		fmt.Printf("State: %s\n", st.State)
		if st.Holder != nil {
			fmt.Printf("Held by: %s %s (pid %d on %s, since %s)\n",
				st.Holder.Application, st.Holder.Version,
				st.Holder.PID, st.Holder.Hostname,
				st.Holder.OpenedAt.Local())
		}
		return nil
	},
}

var lockBreakCmd = &cobra.Command{
	Use:   "break <path>",
	Short: "Forcibly remove a vault's lock file",
	Long: `Forcibly remove a vault's lock file. Only do this when the holding
process is known to be gone; breaking a live lock invites concurrent
writes to the vault file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := lockfile.Check(args[0])
		if st.State == lockfile.HeldByOther || st.State == lockfile.HeldBySelf {
			ok, err := confirm("The lock appears to be held. Break it anyway?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := lockfile.ForceUnlock(args[0]); err != nil {
			return err
		}
		fmt.Println("Lock removed")
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened vaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settings.DefaultPath()
		if err != nil {
			return err
		}
		cfg, err := settings.NewStore(path).Load()
		if err != nil {
			return err
		}
		if len(cfg.RecentVaults) == 0 {
			fmt.Println("No recent vaults")
			return nil
		}
		for _, p := range cfg.RecentVaults {
			marker := " "
			if p == cfg.LastVault {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p)
		}
		return nil
	},
}

func init() {
	lockCmd.AddCommand(lockStatusCmd)
	lockCmd.AddCommand(lockBreakCmd)
}
