package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/internal/cli"
	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Entry operations",
}

// Flags for entry add and edit.
var (
	entryGroup    string
	entryTitle    string
	entryUsername string
	entryURL      string
	entryNotes    string
	entryTags     string
	entryIcon     int
	entryFields   []string
	entrySecrets  []string
	entryAskPass  bool
	entryGlob     bool
)

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			items, err := s.ListEntries(entryGroup)
			if err != nil {
				return err
			}
			printEntryItems(items)
			return nil
		})
	},
}

var entrySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entries by title, username, URL, notes, or tags",
	Long: `Search entries by substring across title, username, URL, notes, and
tags. With --glob the query is a glob pattern matched against titles
only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			if entryGlob {
				items, err := globEntries(s, args[0])
				if err != nil {
					return err
				}
				printEntryItems(items)
				return nil
			}
			items, err := s.SearchEntries(args[0])
			if err != nil {
				return err
			}
			printEntryItems(items)
			return nil
		})
	},
}

// globEntries matches the pattern against every entry title outside the
// recycle bin.
func globEntries(s *vault.Session, pattern string) ([]vault.EntryItem, error) {
	items, err := s.SearchEntries("")
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	matched, err := cli.ExpandPattern(pattern, titles)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(matched))
	for _, title := range matched {
		wanted[title] = true
	}
	var out []vault.EntryItem
	for _, item := range items {
		if wanted[item.Title] {
			out = append(out, item)
		}
	}
	return out, nil
}

var entryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an entry without revealing protected values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			details, err := s.GetEntry(args[0])
			if err != nil {
				return err
			}
			printEntryDetails(details)
			return nil
		})
	},
}

var entryPasswordCmd = &cobra.Command{
	Use:   "password <id>",
	Short: "Print an entry's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			pw, err := s.GetEntryPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(pw)
			return nil
		})
	},
}

var entryFieldCmd = &cobra.Command{
	Use:   "field <id> <key>",
	Short: "Print a protected custom field value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			value, err := s.GetProtectedCustomField(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		})
	},
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFieldArgs(entryFields)
		if err != nil {
			return err
		}
		secrets, err := parseFieldArgs(entrySecrets)
		if err != nil {
			return err
		}

		data := vault.EntryData{
			Title:                 entryTitle,
			Username:              entryUsername,
			URL:                   entryURL,
			Notes:                 entryNotes,
			IconID:                entryIcon,
			Tags:                  splitFlagTags(entryTags),
			CustomFields:          fields,
			ProtectedCustomFields: secrets,
		}
		if entryAskPass {
			pw, err := promptPassword("Entry password: ")
			if err != nil {
				return err
			}
			data.Password = pw
		}

		return withOpenVault(func(s *vault.Session) error {
			details, err := s.CreateEntry(entryGroup, data)
			if err != nil {
				return err
			}
			recordSessionOp(s, audit.OpEntryCreate, details.ID, nil)
			fmt.Printf("Created entry %s\n", details.ID)
			return nil
		})
	},
}

var entryEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an entry",
	Long: `Edit an entry. Only the flags given change; field flags replace the
entry's whole custom-field set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch vault.EntryPatch
		if cmd.Flags().Changed("title") {
			patch.Title = &entryTitle
		}
		if cmd.Flags().Changed("username") {
			patch.Username = &entryUsername
		}
		if cmd.Flags().Changed("url") {
			patch.URL = &entryURL
		}
		if cmd.Flags().Changed("notes") {
			patch.Notes = &entryNotes
		}
		if cmd.Flags().Changed("icon") {
			patch.IconID = &entryIcon
		}
		if cmd.Flags().Changed("tags") {
			patch.Tags = splitFlagTags(entryTags)
		}
		if cmd.Flags().Changed("field") {
			fields, err := parseFieldArgs(entryFields)
			if err != nil {
				return err
			}
			patch.CustomFields = fields
		}
		if cmd.Flags().Changed("secret-field") {
			secrets, err := parseFieldArgs(entrySecrets)
			if err != nil {
				return err
			}
			patch.ProtectedCustomFields = secrets
		}
		if entryAskPass {
			pw, err := promptPassword("New entry password: ")
			if err != nil {
				return err
			}
			patch.Password = &pw
		}

		return withOpenVault(func(s *vault.Session) error {
			if _, err := s.UpdateEntry(args[0], patch); err != nil {
				return err
			}
			recordSessionOp(s, audit.OpEntryUpdate, args[0], nil)
			fmt.Println("Entry updated")
			return nil
		})
	},
}

var entryRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Move an entry to the recycle bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			if err := s.DeleteEntry(args[0]); err != nil {
				return err
			}
			recordSessionOp(s, audit.OpEntryDelete, args[0], nil)
			fmt.Println("Entry moved to recycle bin")
			return nil
		})
	},
}

var entryMvCmd = &cobra.Command{
	Use:   "mv <id> <group-id>",
	Short: "Move an entry to another group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			if err := s.MoveEntry(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Entry moved")
			return nil
		})
	},
}

func init() {
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entrySearchCmd)
	entryCmd.AddCommand(entryShowCmd)
	entryCmd.AddCommand(entryPasswordCmd)
	entryCmd.AddCommand(entryFieldCmd)
	entryCmd.AddCommand(entryAddCmd)
	entryCmd.AddCommand(entryEditCmd)
	entryCmd.AddCommand(entryRmCmd)
	entryCmd.AddCommand(entryMvCmd)

	entryListCmd.Flags().StringVar(&entryGroup, "group", "", "List only this group's direct entries")
	entrySearchCmd.Flags().BoolVar(&entryGlob, "glob", false, "Treat the query as a glob pattern over titles")

	for _, c := range []*cobra.Command{entryAddCmd, entryEditCmd} {
		c.Flags().StringVar(&entryTitle, "title", "", "Entry title")
		c.Flags().StringVar(&entryUsername, "username", "", "Username")
		c.Flags().StringVar(&entryURL, "url", "", "URL")
		c.Flags().StringVar(&entryNotes, "notes", "", "Notes")
		c.Flags().StringVar(&entryTags, "tags", "", "Comma-separated tags")
		c.Flags().IntVar(&entryIcon, "icon", 0, "Icon id")
		c.Flags().StringArrayVar(&entryFields, "field", nil, "Custom field (key=value, can be repeated)")
		c.Flags().StringArrayVar(&entrySecrets, "secret-field", nil, "Protected custom field (key=value, can be repeated)")
		c.Flags().BoolVar(&entryAskPass, "password", false, "Prompt for the entry password")
	}
	entryAddCmd.Flags().StringVar(&entryGroup, "group", "", "Parent group id (defaults to the root group)")
}

func printEntryItems(items []vault.EntryItem) {
	if len(items) == 0 {
		fmt.Println("No entries")
		return
	}
	for _, item := range items {
		line := fmt.Sprintf("%s  %s", item.ID, item.Title)
		if item.Username != "" {
			line += fmt.Sprintf("  (%s)", item.Username)
		}
		if len(item.Tags) > 0 {
			line += "  [" + strings.Join(item.Tags, ", ") + "]"
		}
		fmt.Println(line)
	}
}

func printEntryDetails(d vault.EntryDetails) {
	fmt.Printf("ID:       %s\n", d.ID)
	fmt.Printf("Group:    %s\n", d.GroupID)
	fmt.Printf("Title:    %s\n", d.Title)
	if d.Username != "" {
		fmt.Printf("Username: %s\n", d.Username)
	}
	if d.URL != "" {
		fmt.Printf("URL:      %s\n", d.URL)
	}
	if d.Notes != "" {
		fmt.Printf("Notes:    %s\n", d.Notes)
	}
	if len(d.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(d.Tags, ", "))
	}
	fmt.Printf("Password: %v\n", d.HasPassword)
	for _, f := range d.Fields {
		if f.Protected {
			fmt.Printf("Field:    %s (protected)\n", f.Key)
		} else {
			fmt.Printf("Field:    %s = %s\n", f.Key, d.CustomFields[f.Key])
		}
	}
	fmt.Printf("Created:  %s\n", d.Created.Local())
	fmt.Printf("Modified: %s\n", d.Modified.Local())
}

// parseFieldArgs turns repeated key=value flags into a map. A nil input
// yields a nil map so absent flags can be told apart from empty ones.
func parseFieldArgs(args []string) (map[string]string, error) {
	if args == nil {
		return nil, nil
	}
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, want key=value", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

func splitFlagTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
