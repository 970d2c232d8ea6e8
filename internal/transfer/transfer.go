// Package transfer wires the codec, record batching, and table layers
// together into the two directions of the `cp` operation: a local
// directory tree into a rootfs table, and a rootfs table back out to a
// local directory tree. The degenerate local-to-local path recovered
// from original_source is handled separately, without touching a table
// at all.
package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/codec"
	"github.com/connected-data-lake/cdl/internal/log"
	"github.com/connected-data-lake/cdl/internal/record"
	"github.com/connected-data-lake/cdl/internal/table"
)

var logger = log.Of("transfer")

// Upload encodes root into a stream of budgeted Arrow batches and appends
// them to tbl, returning the new committed table.
func Upload(ctx context.Context, root string, tbl *table.Table, cat *catalog.DatasetCatalog) (*table.Table, error) {
	encCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	items, err := codec.Encode(encCtx, root, cat)
	if err != nil {
		return nil, err
	}

	builder := record.NewBatchBuilder(cat.MaxBufferSize)
	defer builder.Release()

	batches := make(chan arrow.Record)
	var encodeErr error
	go func() {
		defer close(batches)
		for item := range items {
			if item.Err != nil {
				encodeErr = item.Err
				return
			}
			batch, err := builder.Push(item.Record)
			if err != nil {
				encodeErr = err
				return
			}
			if batch != nil {
				batches <- batch
			}
		}
		if final := builder.Flush(); final != nil {
			batches <- final
		}
	}()

	newTbl, appendErr := tbl.Append(ctx, batches)
	if appendErr != nil {
		cancel()
	}
	// Append stops reading batches on a write error; drain the rest so the
	// producer reaches close() before encodeErr is read.
	for batch := range batches {
		batch.Release()
	}
	if encodeErr != nil {
		return nil, encodeErr
	}
	if appendErr != nil {
		return nil, appendErr
	}
	logger.Infof("uploaded %q to version %d", root, newTbl.Version())
	return newTbl, nil
}

// Download scans tbl and decodes it into root.
func Download(ctx context.Context, tbl *table.Table, root string) error {
	items, err := tbl.Scan(ctx)
	if err != nil {
		return err
	}

	records := make(chan record.FileRecord)
	var scanErr error
	go func() {
		defer close(records)
		for item := range items {
			if item.Err != nil {
				scanErr = item.Err
				return
			}
			records <- item.Record
		}
	}()

	if err := codec.Decode(ctx, root, records); err != nil {
		return err
	}
	return scanErr
}

// CopyLocalToLocal performs a direct filesystem copy, the degenerate path
// original_source's GlobalPath handling takes when neither side is a
// remote dataset: no table is involved.
func CopyLocalToLocal(from, to string) error {
	return filepath.Walk(from, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(to, rel)
		if info.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		return copyFile(path, dest, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q to %q: %w", src, dst, err)
	}
	return nil
}
