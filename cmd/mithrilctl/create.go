package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mithrilvault/mithrilctl/internal/kdbx"
	"github.com/mithrilvault/mithrilctl/pkg/audit"
	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

var (
	createName          string
	createDescription   string
	createDefaultGroups bool
	createKDFMemory     uint64
	createKDFIterations uint64
	createKDFThreads    uint32
)

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a new vault file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		password, err := promptNewPassword()
		if err != nil {
			return err
		}

		opts := vault.CreateOptions{
			Name:          createName,
			Description:   createDescription,
			DefaultGroups: createDefaultGroups,
		}
		kdf := vault.DefaultKDFConfig()
		if createKDFMemory > 0 {
			kdf.MemoryKiB = createKDFMemory * 1024
		}
		if createKDFIterations > 0 {
			kdf.Iterations = createKDFIterations
		}
		if createKDFThreads > 0 {
			kdf.Parallelism = createKDFThreads
		}
		opts.KDF = &kdf

		s := vault.NewSession(kdbx.New())
		info, err := s.Create(path, vault.Credentials{Password: password, KeyfilePath: flagKeyfile}, opts)
		if err != nil {
			return err
		}
		defer s.Close()

		recordOp(path, audit.OpVaultCreate, "", nil)
		rememberVault(path)
		fmt.Printf("Created vault %q at %s (kdbx %s)\n", info.Name, info.Path, info.Version)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Database name (defaults to the file name)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Database description")
	createCmd.Flags().BoolVar(&createDefaultGroups, "default-groups", false, "Seed the vault with starter groups")
	createCmd.Flags().Uint64Var(&createKDFMemory, "kdf-memory", 0, "Argon2 memory in MiB")
	createCmd.Flags().Uint64Var(&createKDFIterations, "kdf-iterations", 0, "Argon2 iterations")
	createCmd.Flags().Uint32Var(&createKDFThreads, "kdf-parallelism", 0, "Argon2 parallelism")
}
