package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Group operations",
}

var (
	groupParent    string
	groupName      string
	groupNotes     string
	groupIcon      int
	groupRecursive bool
	groupPermanent bool
)

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the group tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			root, err := s.ListGroups()
			if err != nil {
				return err
			}
			printGroupTree(root, 0)
			return nil
		})
	},
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			info, err := s.CreateGroup(groupParent, vault.GroupData{
				Name:   args[0],
				Notes:  groupNotes,
				IconID: groupIcon,
			})
			if err != nil {
				return err
			}
			recordSessionOp(s, audit.OpGroupCreate, info.ID, nil)
			fmt.Printf("Created group %s\n", info.ID)
			return nil
		})
	},
}

var groupEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch vault.GroupPatch
		if cmd.Flags().Changed("name") {
			patch.Name = &groupName
		}
		if cmd.Flags().Changed("notes") {
			patch.Notes = &groupNotes
		}
		if cmd.Flags().Changed("icon") {
			patch.IconID = &groupIcon
		}

		return withOpenVault(func(s *vault.Session) error {
			if _, err := s.UpdateGroup(args[0], patch); err != nil {
				return err
			}
			recordSessionOp(s, audit.OpGroupUpdate, args[0], nil)
			fmt.Println("Group updated")
			return nil
		})
	},
}

var groupRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a group",
	Long: `Delete a group. By default the group moves to the recycle bin;
--permanent removes it outright. A non-empty group needs --recursive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if groupPermanent {
			ok, err := confirm("Permanently delete the group and everything in it?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		return withOpenVault(func(s *vault.Session) error {
			err := s.DeleteGroup(args[0], vault.DeleteGroupOptions{
				Recursive: groupRecursive,
				Permanent: groupPermanent,
			})
			if err != nil {
				return err
			}
			recordSessionOp(s, audit.OpGroupDelete, args[0], nil)
			fmt.Println("Group deleted")
			return nil
		})
	},
}

var groupMvCmd = &cobra.Command{
	Use:   "mv <id> <parent-id>",
	Short: "Move a group under another parent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOpenVault(func(s *vault.Session) error {
			if err := s.MoveGroup(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Group moved")
			return nil
		})
	},
}

func init() {
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupEditCmd)
	groupCmd.AddCommand(groupRmCmd)
	groupCmd.AddCommand(groupMvCmd)

	groupAddCmd.Flags().StringVar(&groupParent, "parent", "", "Parent group id (defaults to the root group)")
	groupAddCmd.Flags().StringVar(&groupNotes, "notes", "", "Group notes")
	groupAddCmd.Flags().IntVar(&groupIcon, "icon", 0, "Icon id")

	groupEditCmd.Flags().StringVar(&groupName, "name", "", "New name")
	groupEditCmd.Flags().StringVar(&groupNotes, "notes", "", "New notes")
	groupEditCmd.Flags().IntVar(&groupIcon, "icon", 0, "New icon id")

	groupRmCmd.Flags().BoolVar(&groupRecursive, "recursive", false, "Delete a non-empty group")
	groupRmCmd.Flags().BoolVar(&groupPermanent, "permanent", false, "Remove outright instead of recycling")
}

func printGroupTree(g vault.GroupInfo, depth int) {
	indent := strings.Repeat("  ", depth)
	name := g.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("%s%s  %s  (%d entries)\n", indent, g.ID, name, g.Entries)
	for _, child := range g.Children {
		printGroupTree(child, depth+1)
	}
}
