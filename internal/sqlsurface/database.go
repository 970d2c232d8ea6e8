package sqlsurface

import "github.com/dolthub/go-mysql-server/sql"

// rootfsDatabase exposes exactly one table, "rootfs", the way
// dolthub-dolt's own sqle.Database/testIndexDb pairs wire a single
// backing table into the engine.
type rootfsDatabase struct {
	table *rootfsTable
}

func newRootfsDatabase(tbl *rootfsTable) *rootfsDatabase {
	return &rootfsDatabase{table: tbl}
}

func (db *rootfsDatabase) Name() string { return databaseName }

func (db *rootfsDatabase) GetTableInsensitive(_ *sql.Context, tblName string) (sql.Table, bool, error) {
	if tblName != tableName {
		return nil, false, nil
	}
	return db.table, true, nil
}

func (db *rootfsDatabase) GetTableNames(_ *sql.Context) ([]string, error) {
	return []string{tableName}, nil
}
