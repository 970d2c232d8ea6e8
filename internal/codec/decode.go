package codec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/connected-data-lake/cdl/internal/log"
	"github.com/connected-data-lake/cdl/internal/record"
)

// Decode applies each FileRecord from stream to files under root, creating
// parent directories as needed. Any error applying a record is fatal; it
// aborts the decode and is returned. Per-file application is
// idempotent: applying the same stream twice to an empty root reproduces
// the same contents.
func Decode(ctx context.Context, root string, stream <-chan record.FileRecord) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create root %q: %w", root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-stream:
			if !ok {
				return nil
			}
			if err := applyRecord(root, rec); err != nil {
				return err
			}
		}
	}
}

func applyRecord(root string, rec record.FileRecord) error {
	log.Debugf(log.Of(rec.Name), "decoding chunk %d", rec.ChunkID)

	parent := strings.TrimPrefix(rec.Parent, "/")
	dir := filepath.Join(root, filepath.FromSlash(parent))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	path := filepath.Join(dir, rec.Name)

	// Note: os.File.WriteAt refuses to operate on a file opened with
	// O_APPEND, so this is plain create+write with an explicit offset
	// rather than append mode.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(rec.Data, int64(rec.ChunkOffset)); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	if md := rec.Metadata; md != nil {
		if err := applyMetadata(path, f, md); err != nil {
			// Warnings only: mode/length already set is acceptable on a
			// second application of the same stream.
			log.Infof(log.Of(path), "metadata re-apply warning: %v", err)
		}
	}
	return nil
}

func applyMetadata(path string, f *os.File, md *record.FileMetadata) error {
	if err := f.Truncate(int64(md.Size)); err != nil {
		return err
	}
	if err := f.Chmod(os.FileMode(md.Mode)); err != nil {
		return err
	}
	if err := os.Chtimes(path, md.Atime, md.Mtime); err != nil {
		return err
	}
	return nil
}
