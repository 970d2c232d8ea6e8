// Package table implements the rootfs table: an append-only, versioned,
// columnar table of FileRecord batches backed by an object store (S3
// only — local storage has no table semantics). Fragments are Arrow IPC
// stream files, optionally compressed, referenced by a JSON manifest
// chain. This plays the role original_source/crates/cdl-store's
// `RootFsTableProvider` plays over deltalake, adapted to a plain
// manifest-plus-fragments format because this module does not carry a
// Delta Lake dependency (see DESIGN.md, "OQ-1").
package table

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/cdlerr"
	"github.com/connected-data-lake/cdl/internal/codec"
	"github.com/connected-data-lake/cdl/internal/log"
	"github.com/connected-data-lake/cdl/internal/objectstore"
	"github.com/connected-data-lake/cdl/internal/record"
)

var logger = log.Of("table")

// Table is a handle onto one dataset's rootfs table at a point-in-time
// version. It is a value produced by OpenTable/CreateTable, not a live
// connection: Append returns a new Table reflecting the committed
// version rather than mutating the receiver.
type Table struct {
	store     objectstore.Store
	dataset   record.DatasetPath
	cat       *catalog.DatasetCatalog
	version   uint64
	fragments []string
	rowCount  int64
}

// Version reports the table's commit version. Version 0 means no Append
// has been committed yet; CreateTable returns such a handle over empty
// storage without writing anything.
func (t *Table) Version() uint64 { return t.version }

// RowCount reports the total row count committed as of this version.
func (t *Table) RowCount() int64 { return t.rowCount }

// Dataset reports the dataset this table belongs to.
func (t *Table) Dataset() record.DatasetPath { return t.dataset }

func requireRemote(dataset record.DatasetPath) error {
	if dataset.Scheme == record.Local {
		return fmt.Errorf("%w: local filesystem does not support rootfs table", cdlerr.ErrUnsupported)
	}
	return nil
}

// OpenTable opens an existing rootfs table. It fails with
// cdlerr.ErrEmptyStorage if the dataset has never been committed, and
// with cdlerr.ErrUnsupported for a local-scheme dataset.
func OpenTable(ctx context.Context, store objectstore.Store, dataset record.DatasetPath, cat *catalog.DatasetCatalog) (*Table, error) {
	if err := requireRemote(dataset); err != nil {
		return nil, err
	}
	m, err := loadManifest(ctx, store)
	if err != nil {
		return nil, err
	}
	return &Table{store: store, dataset: dataset, cat: cat, version: m.Version, fragments: m.Fragments, rowCount: m.RowCount}, nil
}

// CreateTable opens the table if it exists, or returns an empty,
// uncommitted handle at version 0 if it does not. It never writes
// anything itself: the first Append performs the table's first commit.
func CreateTable(ctx context.Context, store objectstore.Store, dataset record.DatasetPath, cat *catalog.DatasetCatalog) (*Table, error) {
	if err := requireRemote(dataset); err != nil {
		return nil, err
	}
	t, err := OpenTable(ctx, store, dataset, cat)
	if err == cdlerr.ErrEmptyStorage {
		return &Table{store: store, dataset: dataset, cat: cat}, nil
	}
	return t, err
}

// Scan returns a channel streaming every committed record in fragment
// order, oldest fragment first. Row order within a fragment is
// preserved from the write that produced it; order across fragments is
// deterministic (append order) but carries no further guarantee. A
// per-fragment read error is terminal for the stream, unlike codec.Encode's
// per-file fail-soft behavior, because a corrupt fragment leaves no way to
// resume mid-file.
func (t *Table) Scan(ctx context.Context) (<-chan codec.Item, error) {
	out := make(chan codec.Item)
	go func() {
		defer close(out)
		for _, frag := range t.fragments {
			recs, err := t.readFragment(ctx, frag)
			if err != nil {
				select {
				case out <- codec.Item{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			for _, rec := range recs {
				for i := 0; i < int(rec.NumRows()); i++ {
					select {
					case out <- codec.Item{Record: record.RowAt(rec, i)}:
					case <-ctx.Done():
						rec.Release()
						return
					}
				}
				rec.Release()
			}
		}
	}()
	return out, nil
}

// batchJob pairs a batch with its arrival order so the writer pool below
// can write fragments out of order but still commit them in the order
// they were produced.
type batchJob struct {
	idx   int
	batch arrow.Record
}

type writtenFragment struct {
	idx  int
	path string
	rows int64
}

// Append consumes a stream of already-budgeted Arrow record batches
// (built with record.BatchBuilder so each is under MaxBufferSize), writes
// one compressed fragment file per batch through a pool of
// cat.MaxWriteThreads worker goroutines, and commits a new table version
// referencing the old fragments plus the new ones. A stream producing
// zero non-empty batches is a no-op: Append returns the table's current
// version unchanged. Append releases each batch once its fragment has
// been written; the caller must not use a batch after sending it. The
// first worker to fail cancels the rest via errgroup, matching
// rclone's b2 backend's bounded-concurrency chunk upload (errgroup.WithContext
// plus a fixed worker count draining a jobs channel).
func (t *Table) Append(ctx context.Context, batches <-chan arrow.Record) (*Table, error) {
	workers := t.cat.MaxWriteThreads
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan batchJob)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		idx := 0
		for batch := range batches {
			if batch == nil || batch.NumRows() == 0 {
				if batch != nil {
					batch.Release()
				}
				continue
			}
			select {
			case jobs <- batchJob{idx: idx, batch: batch}:
				idx++
			case <-gCtx.Done():
				batch.Release()
				return nil
			}
		}
		return nil
	})

	var mu sync.Mutex
	var written []writtenFragment
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				path, err := t.writeFragment(gCtx, j.batch)
				rows := j.batch.NumRows()
				j.batch.Release()
				if err != nil {
					return err
				}
				mu.Lock()
				written = append(written, writtenFragment{idx: j.idx, path: path, rows: rows})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(written) == 0 {
		logger.Debugf("append: no non-empty batches, table unchanged at version %d", t.version)
		return t, nil
	}

	sort.Slice(written, func(i, j int) bool { return written[i].idx < written[j].idx })

	var newFragments []string
	var newRows int64
	for _, w := range written {
		newFragments = append(newFragments, w.path)
		newRows += w.rows
	}

	allFragments := append(append([]string{}, t.fragments...), newFragments...)
	newVersion := t.version + 1
	m := manifest{Version: newVersion, Fragments: allFragments, RowCount: t.rowCount + newRows}
	if err := commitManifest(ctx, t.store, t.version, m); err != nil {
		return nil, err
	}
	logger.Infof("committed version %d (%d fragments, %d rows)", newVersion, len(allFragments), m.RowCount)
	return &Table{store: t.store, dataset: t.dataset, cat: t.cat, version: newVersion, fragments: allFragments, rowCount: m.RowCount}, nil
}

func (t *Table) writeFragment(ctx context.Context, batch arrow.Record) (string, error) {
	var raw bytes.Buffer
	w := ipc.NewWriter(&raw, ipc.WithSchema(record.Schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err := w.Write(batch); err != nil {
		return "", cdlerr.NewIoError("fragment", err)
	}
	if err := w.Close(); err != nil {
		return "", cdlerr.NewIoError("fragment", err)
	}

	comp := t.cat.Compression
	if comp == "" {
		comp = catalog.CompressionSnappy
	}
	var compressed bytes.Buffer
	cw, err := newCompressWriter(&compressed, comp, t.cat.CompressionLevel)
	if err != nil {
		return "", err
	}
	if _, err := cw.Write(raw.Bytes()); err != nil {
		return "", cdlerr.NewIoError("fragment", err)
	}
	if err := cw.Close(); err != nil {
		return "", cdlerr.NewIoError("fragment", err)
	}

	path := fmt.Sprintf("%s%s.arrow.%s", fragmentPrefix, uuid.NewString(), comp)
	if _, err := t.store.Put(ctx, path, compressed.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func (t *Table) readFragment(ctx context.Context, path string) ([]arrow.Record, error) {
	res, err := objectstore.Get(ctx, t.store, path)
	if err != nil {
		return nil, err
	}
	raw, err := res.Bytes()
	if err != nil {
		return nil, cdlerr.NewIoError(path, err)
	}

	comp := compressionFromPath(path, t.cat.Compression)
	dr, err := newDecompressReader(bytes.NewReader(raw), comp)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	decompressed, err := io.ReadAll(dr)
	if err != nil {
		return nil, cdlerr.NewIoError(path, err)
	}

	reader, err := ipc.NewReader(bytes.NewReader(decompressed), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, cdlerr.NewSchemaError(path, err.Error())
	}
	defer reader.Release()

	var out []arrow.Record
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		out = append(out, rec)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, cdlerr.NewSchemaError(path, err.Error())
	}
	return out, nil
}

// compressionFromPath recovers the codec from the fragment's file
// extension rather than trusting the catalog's current setting, so a
// table whose compression setting changed after older fragments were
// written can still be read.
func compressionFromPath(path string, fallback catalog.Compression) catalog.Compression {
	for _, c := range []catalog.Compression{
		catalog.CompressionSnappy, catalog.CompressionGzip, catalog.CompressionZstd,
		catalog.CompressionBrotli, catalog.CompressionLz4Raw, catalog.CompressionLz4,
		catalog.CompressionLzo, catalog.CompressionUncompressed,
	} {
		if hasSuffix(path, string(c)) {
			return c
		}
	}
	return fallback
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// Fragments reports the fragment paths backing this table version,
// sorted for deterministic listing.
func (t *Table) Fragments() []string {
	out := append([]string{}, t.fragments...)
	sort.Strings(out)
	return out
}
