package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/importer"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var (
	importFormat string
	importGroup  string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from another password manager's export",
	Long: `Import entries from a Bitwarden JSON, LastPass CSV, or 1Password CSV
export file. Folder structure from the export is recreated as groups under
the target group.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := importer.ParserFor(importer.Source(importFormat))
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export file: %w", err)
		}

		result, err := parser.Parse(data)
		if err != nil {
			return err
		}

		return withOpenVault(func(s *vault.Session) error {
			imported := 0
			for _, parsed := range result.Entries {
				groupID, err := ensureGroupPath(s, importGroup, parsed.GroupPath)
				if err != nil {
					return err
				}
				if _, err := s.CreateEntry(groupID, parsed.Data); err != nil {
					return fmt.Errorf("import %q: %w", parsed.Data.Title, err)
				}
				imported++
			}

			recordSessionOp(s, audit.OpImport, string(parser.Source()), nil)
			fmt.Printf("Imported %d entries from %s\n", imported, parser.Source())
			for _, skipped := range result.Skipped {
				fmt.Printf("Skipped %q: %s\n", skipped.Name, skipped.Reason)
			}
			for _, warning := range result.Warnings {
				fmt.Printf("Warning: %s\n", warning)
			}
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "", "Export format: bitwarden, lastpass, or 1password")
	importCmd.Flags().StringVar(&importGroup, "group", "", "Target group ID (defaults to the root group)")
	importCmd.MarkFlagRequired("format")

	rootCmd.AddCommand(importCmd)
}

// ensureGroupPath walks the named path below the base group, creating
// missing groups along the way, and returns the final group's ID. An
// empty base means the vault root.
func ensureGroupPath(s *vault.Session, baseID string, path []string) (string, error) {
	var current vault.GroupInfo
	var err error
	if baseID == "" {
		current, err = s.ListGroups()
	} else {
		current, err = s.GetGroup(baseID)
	}
	if err != nil {
		return "", err
	}

	for _, name := range path {
		next, found := childByName(current, name)
		if !found {
			next, err = s.CreateGroup(current.ID, vault.GroupData{Name: name})
			if err != nil {
				return "", err
			}
		}
		current = next
	}
	return current.ID, nil
}

func childByName(group vault.GroupInfo, name string) (vault.GroupInfo, bool) {
	for _, child := range group.Children {
		if child.Name == name {
			return child, true
		}
	}
	return vault.GroupInfo{}, false
}
