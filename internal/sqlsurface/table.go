package sqlsurface

import (
	"io"

	"github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"

	"github.com/connected-data-lake/cdl/internal/record"
)

// rootfsTable is an in-memory sql.Table wrapping one materialized scan of
// the rootfs table, following the shape of dolthub-dolt's own
// sql.Table implementations (Name/String/Schema/Collation/Partitions/
// PartitionRows), minus anything dolt-specific like indexing.
type rootfsTable struct {
	rows [][]interface{}
}

func newRootfsTable() *rootfsTable {
	return &rootfsTable{}
}

func (t *rootfsTable) Name() string   { return tableName }
func (t *rootfsTable) String() string { return tableName }

func (t *rootfsTable) Schema() sql.Schema {
	return sql.Schema{
		{Name: record.ColName, Type: types.Text, Source: tableName},
		{Name: record.ColParent, Type: types.Text, Source: tableName},
		{Name: record.ColAtime, Type: types.Datetime, Nullable: true, Source: tableName},
		{Name: record.ColCtime, Type: types.Datetime, Nullable: true, Source: tableName},
		{Name: record.ColMtime, Type: types.Datetime, Nullable: true, Source: tableName},
		{Name: record.ColMode, Type: types.Uint32, Nullable: true, Source: tableName},
		{Name: record.ColSize, Type: types.Uint64, Nullable: true, Source: tableName},
		{Name: record.ColChunkID, Type: types.Uint64, Source: tableName},
		{Name: record.ColChunkOffset, Type: types.Uint64, Source: tableName},
		{Name: record.ColChunkSize, Type: types.Uint64, Source: tableName},
		{Name: record.ColData, Type: types.Blob, Nullable: true, Source: tableName},
	}
}

func (t *rootfsTable) Collation() sql.CollationID {
	return sql.Collation_Default
}

func (t *rootfsTable) Partitions(*sql.Context) (sql.PartitionIter, error) {
	return &singlePartitionIter{}, nil
}

func (t *rootfsTable) PartitionRows(_ *sql.Context, _ sql.Partition) (sql.RowIter, error) {
	return &rowsIter{rows: t.rows}, nil
}

// singlePartitionIter yields the table's one and only partition: the full
// in-memory row set built at Engine construction time.
type singlePartitionIter struct {
	done bool
}

func (p *singlePartitionIter) Next(*sql.Context) (sql.Partition, error) {
	if p.done {
		return nil, io.EOF
	}
	p.done = true
	return wholeTablePartition{}, nil
}

func (p *singlePartitionIter) Close(*sql.Context) error { return nil }

type wholeTablePartition struct{}

func (wholeTablePartition) Key() []byte { return []byte(tableName) }

type rowsIter struct {
	rows [][]interface{}
	pos  int
}

func (it *rowsIter) Next(*sql.Context) (sql.Row, error) {
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	return sql.NewRow(row...), nil
}

func (it *rowsIter) Close(*sql.Context) error { return nil }

func rowFromRecord(r record.FileRecord) []interface{} {
	row := make([]interface{}, 11)
	row[0] = r.Name
	row[1] = r.Parent
	if m := r.Metadata; m != nil {
		row[2] = m.Atime
		row[3] = m.Ctime
		row[4] = m.Mtime
		row[5] = m.Mode
		row[6] = m.Size
	}
	row[7] = r.ChunkID
	row[8] = r.ChunkOffset
	row[9] = r.ChunkSize
	row[10] = r.Data
	return row
}
