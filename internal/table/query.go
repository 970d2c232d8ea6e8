package table

import (
	"context"

	"github.com/connected-data-lake/cdl/internal/sqlsurface"
)

// Query builds a fresh SQL surface over a full scan of the table and
// evaluates sql against it. Each call re-scans and re-materializes the
// table: there is no persistent query session across calls.
func (t *Table) Query(ctx context.Context, sql string) (*sqlsurface.Result, error) {
	items, err := t.Scan(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := sqlsurface.New(ctx, items)
	if err != nil {
		return nil, err
	}
	return engine.Query(sql)
}

// ReadDir lists the immediate contents of prefix.
func (t *Table) ReadDir(ctx context.Context, prefix string) (*sqlsurface.Result, error) {
	items, err := t.Scan(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := sqlsurface.New(ctx, items)
	if err != nil {
		return nil, err
	}
	return engine.ReadDir(prefix)
}

// ReadDirAll lists every file in the table.
func (t *Table) ReadDirAll(ctx context.Context) (*sqlsurface.Result, error) {
	items, err := t.Scan(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := sqlsurface.New(ctx, items)
	if err != nil {
		return nil, err
	}
	return engine.ReadDirAll()
}

// ReadFilesByCondition returns full records, including data, matching an
// arbitrary SQL boolean expression over the rootfs schema.
func (t *Table) ReadFilesByCondition(ctx context.Context, cond string) (*sqlsurface.Result, error) {
	items, err := t.Scan(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := sqlsurface.New(ctx, items)
	if err != nil {
		return nil, err
	}
	return engine.ReadFilesByCondition(cond)
}
