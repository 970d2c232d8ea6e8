// Package cli builds the cdl command tree: cp, query, and (Linux-only)
// mount, following the subcommand-per-file layout of
// kluzzebass-gastrolog's cmd/gastrolog/cli package.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/connected-data-lake/cdl/internal/catalog"
)

// Execute builds and runs the root command against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cat := catalog.New()

	root := &cobra.Command{
		Use:           "cdl",
		Short:         "Connected Data Lake toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cat.BindFlags(root)

	root.AddCommand(newCpCmd(cat))
	root.AddCommand(newQueryCmd(cat))
	root.AddCommand(newMountCmd(cat))
	return root
}
