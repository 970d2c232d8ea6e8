//go:build !linux

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connected-data-lake/cdl/internal/catalog"
)

// newMountCmd on non-Linux platforms returns a command that reports FUSE
// mounting as unavailable: the go-fuse mount command is built only on Linux.
func newMountCmd(_ *catalog.DatasetCatalog) *cobra.Command {
	return &cobra.Command{
		Use:   "mount <from> <to>",
		Short: "Mount a remote dataset read-only (Linux only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("mount is only supported on linux")
		},
	}
}
