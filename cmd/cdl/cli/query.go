package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connected-data-lake/cdl/internal/cachestore"
	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/record"
	"github.com/connected-data-lake/cdl/internal/sqlsurface"
	"github.com/connected-data-lake/cdl/internal/table"
)

const queryPreviewRows = 10

func newQueryCmd(cat *catalog.DatasetCatalog) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <target> <sql>",
		Short: "Run a SQL statement against a dataset's rootfs table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := record.ParseGlobalPath(args[0])
			if err != nil {
				return err
			}
			if target.Dataset.Scheme != record.S3 {
				return fmt.Errorf("query requires a remote dataset target, got %s", target.Dataset)
			}

			ctx := cmd.Context()
			store, err := cachestore.BuildForScheme(target.Dataset.Name, cat)
			if err != nil {
				return err
			}
			tbl, err := table.OpenTable(ctx, store, target.Dataset, cat)
			if err != nil {
				return err
			}
			res, err := tbl.Query(ctx, args[1])
			if err != nil {
				return err
			}
			printPreview(cmd, res)
			return nil
		},
	}
	return cmd
}

// printPreview prints at most the first queryPreviewRows rows, noting how
// many were withheld.
func printPreview(cmd *cobra.Command, res *sqlsurface.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, joinColumns(res.Columns))
	n := len(res.Rows)
	if n > queryPreviewRows {
		n = queryPreviewRows
	}
	for _, row := range res.Rows[:n] {
		fmt.Fprintln(out, joinRow(row))
	}
	if len(res.Rows) > queryPreviewRows {
		fmt.Fprintf(out, "... %d more row(s)\n", len(res.Rows)-queryPreviewRows)
	}
}

func joinColumns(cols []string) string {
	s := ""
	for i, c := range cols {
		if i > 0 {
			s += "\t"
		}
		s += c
	}
	return s
}

func joinRow(row []interface{}) string {
	s := ""
	for i, v := range row {
		if i > 0 {
			s += "\t"
		}
		s += fmt.Sprintf("%v", v)
	}
	return s
}
