package table

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
	"github.com/connected-data-lake/cdl/internal/objectstore"
)

// manifest is the rootfs table's append-only transaction log entry: the
// cumulative fragment list as of a given version. encoding/json is used
// deliberately for this small, internal bookkeeping document rather than
// an ecosystem serialization library — see DESIGN.md for why no
// third-party codec was reached for here.
type manifest struct {
	Version   uint64   `json:"version"`
	Fragments []string `json:"fragments"`
	RowCount  int64    `json:"row_count"`
}

const (
	dirRootfs      = "rootfs"
	logDir         = dirRootfs + "/_log"
	pointerPath    = logDir + "/current.json"
	fragmentPrefix = dirRootfs + "/data/"
)

type pointer struct {
	Version uint64 `json:"version"`
}

func versionPath(version uint64) string {
	return fmt.Sprintf("%s/v%020d.json", logDir, version)
}

// loadManifest reads the manifest at the table's current version, or
// returns (nil, cdlerr.ErrEmptyStorage) if the table has never been
// committed.
func loadManifest(ctx context.Context, store objectstore.Store) (*manifest, error) {
	res, err := objectstore.Get(ctx, store, pointerPath)
	if err == cdlerr.ErrNotFound {
		return nil, cdlerr.ErrEmptyStorage
	}
	if err != nil {
		return nil, err
	}
	body, err := res.Bytes()
	if err != nil {
		return nil, cdlerr.NewIoError(pointerPath, err)
	}
	var p pointer
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, cdlerr.NewSchemaError("current.json", err.Error())
	}

	vres, err := objectstore.Get(ctx, store, versionPath(p.Version))
	if err != nil {
		return nil, err
	}
	vbody, err := vres.Bytes()
	if err != nil {
		return nil, cdlerr.NewIoError(versionPath(p.Version), err)
	}
	var m manifest
	if err := json.Unmarshal(vbody, &m); err != nil {
		return nil, cdlerr.NewSchemaError(versionPath(p.Version), err.Error())
	}
	return &m, nil
}

// commitManifest writes a new version file and advances the pointer.
//
// The real atomicity anchor is the version file write: it uses PutOpts
// with IfNoneMatch: "*", so the write itself fails with
// cdlerr.ErrAlreadyExists if another writer already committed this exact
// version number, the same way a Delta Lake / Dolt writer's atomicity
// comes from atomically creating the next immutable version-log entry,
// never from compare-and-swapping a mutable pointer. Two committers
// racing on the same expectedVersion can both pass the cheap pre-check
// below, but only one of them can win the PutOpts create; the loser gets
// ErrAlreadyExists back and is not retried automatically.
//
// current.json, by contrast, is advisory only: once a writer reaches the
// pointer update it has already won the version-file race, so the
// pointer's own plain, non-atomic Put can never be a source of a
// silent clobber — at worst a concurrent reader briefly sees the older
// pointer until the winning write lands.
func commitManifest(ctx context.Context, store objectstore.Store, expectedVersion uint64, m manifest) error {
	if cur, err := loadManifest(ctx, store); err == nil {
		if cur.Version != expectedVersion {
			return cdlerr.NewBackendError("table", fmt.Errorf(
				"commit conflict: expected version %d, found %d", expectedVersion, cur.Version))
		}
	} else if err != cdlerr.ErrEmptyStorage {
		return err
	} else if expectedVersion != 0 {
		return cdlerr.NewBackendError("table", fmt.Errorf(
			"commit conflict: expected version %d, found empty storage", expectedVersion))
	}

	body, err := json.Marshal(m)
	if err != nil {
		return cdlerr.NewSchemaError("manifest", err.Error())
	}
	if _, err := store.PutOpts(ctx, versionPath(m.Version), body, objectstore.PutOptions{IfNoneMatch: "*"}); err != nil {
		if err == cdlerr.ErrAlreadyExists {
			return cdlerr.NewBackendError("table", fmt.Errorf(
				"commit conflict: version %d already committed by another writer", m.Version))
		}
		return err
	}

	p := pointer{Version: m.Version}
	pbody, err := json.Marshal(p)
	if err != nil {
		return cdlerr.NewSchemaError("current.json", err.Error())
	}
	if _, err := store.Put(ctx, pointerPath, pbody); err != nil {
		return err
	}
	return nil
}
