package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/pkg/security"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Scan the vault for weak and reused passwords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			analyzer, err := security.NewAnalyzer()
			if err != nil {
				return err
			}
			report, err := analyzer.Analyze(s)
			if err != nil {
				return err
			}

			fmt.Printf("Entries scanned:     %d\n", report.Entries)
			fmt.Printf("With passwords:      %d\n", report.WithPassword)
			fmt.Printf("Weak passwords:      %d\n", len(report.WeakPasswords))
			fmt.Printf("Reused passwords:    %d groups\n", len(report.Duplicates))

			if len(report.WeakPasswords) > 0 {
				fmt.Println()
				fmt.Println("Weak:")
				for _, w := range report.WeakPasswords {
					fmt.Printf("  %s  %s (%s)\n", w.EntryID, w.Title, w.Strength)
				}
			}
			if len(report.Duplicates) > 0 {
				fmt.Println()
				fmt.Println("Reused:")
				for _, d := range report.Duplicates {
					fmt.Printf("  %d entries: %s\n", d.Count, strings.Join(d.Titles, ", "))
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
