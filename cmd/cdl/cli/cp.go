package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connected-data-lake/cdl/internal/cachestore"
	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/record"
	"github.com/connected-data-lake/cdl/internal/table"
	"github.com/connected-data-lake/cdl/internal/transfer"
)

func newCpCmd(cat *catalog.DatasetCatalog) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cp <from> <to>",
		Short: "Copy a local tree into a dataset, or a dataset back to a local tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := record.ParseGlobalPath(args[0])
			if err != nil {
				return err
			}
			to, err := record.ParseGlobalPath(args[1])
			if err != nil {
				return err
			}
			return runCp(cmd, cat, from, to)
		},
	}
	return cmd
}

func runCp(cmd *cobra.Command, cat *catalog.DatasetCatalog, from, to record.GlobalPath) error {
	ctx := cmd.Context()

	switch {
	case from.Dataset.Scheme == record.Local && to.Dataset.Scheme == record.Local:
		return transfer.CopyLocalToLocal(from.Rel, to.Rel)

	case from.Dataset.Scheme == record.Local && to.Dataset.Scheme == record.S3:
		store, err := cachestore.BuildForScheme(to.Dataset.Name, cat)
		if err != nil {
			return err
		}
		tbl, err := table.CreateTable(ctx, store, to.Dataset, cat)
		if err != nil {
			return err
		}
		newTbl, err := transfer.Upload(ctx, from.Rel, tbl, cat)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded to %s at version %d\n", to.Dataset, newTbl.Version())
		return nil

	case from.Dataset.Scheme == record.S3 && to.Dataset.Scheme == record.Local:
		store, err := cachestore.BuildForScheme(from.Dataset.Name, cat)
		if err != nil {
			return err
		}
		tbl, err := table.OpenTable(ctx, store, from.Dataset, cat)
		if err != nil {
			return err
		}
		if err := transfer.Download(ctx, tbl, to.Rel); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s (version %d) to %s\n", from.Dataset, tbl.Version(), to.Rel)
		return nil

	default:
		return fmt.Errorf("copying directly between two remote datasets is not supported; cp through a local path")
	}
}
