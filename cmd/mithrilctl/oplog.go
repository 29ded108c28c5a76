package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Operation log",
	Long: `Inspect the vault's operation log. Every open, save, and mutation is
recorded in a sidecar file with an HMAC chain, so tampering with the log
is detectable.`,
}

var logTail int

var logShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recorded operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := vaultPath()
		if err != nil {
			return err
		}
		logger, err := audit.Open(path)
		if err != nil {
			return err
		}
		events, err := logger.Events()
		if err != nil {
			return err
		}
		if logTail > 0 && len(events) > logTail {
			events = events[len(events)-logTail:]
		}
		if len(events) == 0 {
			fmt.Println("No operations recorded")
			return nil
		}
		for _, e := range events {
			line := fmt.Sprintf("%s  %-18s %s", e.Timestamp, e.Op, e.Result)
			if e.Target != "" {
				line += "  " + e.Target
			}
			if e.Error != "" {
				line += "  (" + e.Error + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var logVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the operation log's HMAC chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := vaultPath()
		if err != nil {
			return err
		}
		logger, err := audit.Open(path)
		if err != nil {
			return err
		}
		n, err := logger.Verify()
		if err != nil {
			return fmt.Errorf("%w (%d events verified before the break)", err, n)
		}
		fmt.Printf("Log verified: %d events\n", n)
		return nil
	},
}

func init() {
	logShowCmd.Flags().IntVarP(&logTail, "tail", "n", 0, "Show only the last N operations")

	logCmd.AddCommand(logShowCmd)
	logCmd.AddCommand(logVerifyCmd)
	rootCmd.AddCommand(logCmd)
}

// recordOp appends one event to the vault's operation log. Logging is
// best-effort; a failure never blocks the vault operation itself.
func recordOp(path, op, target string, opErr error) {
	logger, err := audit.Open(path)
	if err != nil {
		return
	}
	_ = logger.Record(op, target, opErr)
}

// recordSessionOp is recordOp for commands that already hold an open
// session and know the vault only through it.
func recordSessionOp(s *vault.Session, op, target string, opErr error) {
	info, err := s.Info()
	if err != nil {
		return
	}
	recordOp(info.Path, op, target, opErr)
}
