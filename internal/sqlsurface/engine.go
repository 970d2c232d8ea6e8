// Package sqlsurface exposes the rootfs table as a single virtual SQL
// table named "rootfs" and evaluates arbitrary SQL against it, using
// go-mysql-server the way dolthub-dolt's libraries/doltcore/sqle package
// wires its own tables into a gms.Engine.
package sqlsurface

import (
	"context"

	gms "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/sql"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
	"github.com/connected-data-lake/cdl/internal/codec"
	"github.com/connected-data-lake/cdl/internal/log"
)

const (
	databaseName = "cdl"
	tableName    = "rootfs"
)

var logger = log.Of("sqlsurface")

// Engine is a one-shot query surface over one snapshot of FileRecords.
// It materializes its source stream into memory at construction time:
// the rootfs table is meant to be queried at ordinary filesystem-tree
// scale, not at a size where a materializing SQL engine is unsuitable.
type Engine struct {
	engine *gms.Engine
	ctx    *sql.Context
}

// New drains items into an in-memory rootfs table and builds a query
// engine over it. A per-record error in the stream aborts construction.
func New(ctx context.Context, items <-chan codec.Item) (*Engine, error) {
	tbl := newRootfsTable()
	for item := range items {
		if item.Err != nil {
			return nil, item.Err
		}
		tbl.rows = append(tbl.rows, rowFromRecord(item.Record))
	}

	db := newRootfsDatabase(tbl)
	pro := sql.NewDatabaseProvider(db)
	engine := gms.NewDefault(pro)
	if err := registerFunctions(engine); err != nil {
		return nil, err
	}

	sqlCtx := sql.NewContext(ctx)
	sqlCtx.SetCurrentDatabase(databaseName)

	return &Engine{engine: engine, ctx: sqlCtx}, nil
}

// Result is one query's column names and row values.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// Query runs an arbitrary SQL statement over the rootfs table.
func (e *Engine) Query(query string) (*Result, error) {
	schema, iter, _, err := e.engine.Query(e.ctx, query)
	if err != nil {
		return nil, cdlerr.NewBackendError("sqlsurface", err)
	}
	defer iter.Close(e.ctx)

	res := &Result{Columns: make([]string, len(schema))}
	for i, col := range schema {
		res.Columns[i] = col.Name
	}
	for {
		row, err := iter.Next(e.ctx)
		if err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, cdlerr.NewBackendError("sqlsurface", err)
		}
		res.Rows = append(res.Rows, []interface{}(row))
	}
	logger.Debugf("query returned %d rows", len(res.Rows))
	return res, nil
}

// ReadDir lists the immediate contents of prefix: name/parent/times/
// mode/size/chunk columns with data omitted, ordered by name.
func (e *Engine) ReadDir(prefix string) (*Result, error) {
	return e.Query("SELECT name, parent, atime, ctime, mtime, mode, size, chunk_id, chunk_offset, chunk_size " +
		"FROM rootfs WHERE parent LIKE '" + escapeLike(prefix) + "' AND size IS NOT NULL ORDER BY name ASC")
}

// ReadDirAll lists every file in the table, ordered by (parent, name).
func (e *Engine) ReadDirAll() (*Result, error) {
	return e.Query("SELECT name, parent, atime, ctime, mtime, mode, size, chunk_id, chunk_offset, chunk_size " +
		"FROM rootfs WHERE size IS NOT NULL ORDER BY parent ASC, name ASC")
}

// ReadFilesByCondition returns full records, including data, matching an
// arbitrary SQL boolean expression over the rootfs schema.
func (e *Engine) ReadFilesByCondition(cond string) (*Result, error) {
	return e.Query("SELECT * FROM rootfs WHERE " + cond)
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
