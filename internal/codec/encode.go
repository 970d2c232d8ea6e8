// Package codec implements the chunked file codec: walking a directory
// tree into a stream of FileRecords and decoding a stream of FileRecords
// back into a directory tree.
package codec

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/log"
	"github.com/connected-data-lake/cdl/internal/record"
)

// Item is one element of the encode stream: either a FileRecord, or an
// error attributed to a single offending file. A per-file error does not
// abort the stream.
type Item struct {
	Record record.FileRecord
	Err    error
}

// Encode walks root and streams FileRecords on the returned channel. The
// channel closes when the walk completes or ctx is cancelled. Symlinks and
// non-regular files are skipped fail-soft.
func Encode(ctx context.Context, root string, cat *catalog.DatasetCatalog) (<-chan Item, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %q: %w", root, err)
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %q: %w", root, err)
	}

	out := make(chan Item, 16)
	go func() {
		defer close(out)

		var wg sync.WaitGroup
		err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				out <- Item{Err: fmt.Errorf("walk %q: %w", path, err)}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if d.Type()&os.ModeSymlink != 0 {
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				encodeFile(ctx, absRoot, path, cat, out)
			}()
			return nil
		})
		wg.Wait()
		if err != nil && err != context.Canceled {
			out <- Item{Err: err}
		}
	}()
	return out, nil
}

// encodeFile reads one file's metadata and chunks, emitting one Item per
// chunk. Any I/O error becomes a single error
// item for this file; the walker continues with other files.
func encodeFile(ctx context.Context, root, path string, cat *catalog.DatasetCatalog, out chan<- Item) {
	log.Debugf(log.Of(path), "encoding file")

	f, err := os.Open(path)
	if err != nil {
		out <- Item{Err: fmt.Errorf("open %q: %w", path, err)}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		out <- Item{Err: fmt.Errorf("stat %q: %w", path, err)}
		return
	}

	name := filepath.Base(path)
	parentAbs := filepath.Dir(path)
	parent := "/" + filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(parentAbs, root), "/"))
	if parentAbs == root {
		parent = "/"
	}

	atime, ctime, mtime := fileTimes(info)
	size := uint64(info.Size())
	mode := uint32(info.Mode().Perm())

	maxChunk := cat.MaxChunkSize
	var chunkCount uint64 = 1
	if maxChunk != 0 && size != 0 {
		chunkCount = (size + maxChunk - 1) / maxChunk
	}

	metadata := &record.FileMetadata{Atime: atime, Ctime: ctime, Mtime: mtime, Mode: mode, Size: size}

	for i := uint64(0); i < chunkCount; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var offset, length uint64
		if maxChunk == 0 {
			offset, length = 0, size
		} else {
			offset = i * maxChunk
			remaining := size - offset
			if remaining < maxChunk {
				length = remaining
			} else {
				length = maxChunk
			}
		}

		data := make([]byte, length)
		if _, err := f.ReadAt(data, int64(offset)); err != nil {
			out <- Item{Err: fmt.Errorf("read %q at %d: %w", path, offset, err)}
			return
		}

		var md *record.FileMetadata
		if i == 0 {
			md = metadata
		}

		out <- Item{Record: record.FileRecord{
			Name:        name,
			Parent:      parent,
			Metadata:    md,
			ChunkID:     i,
			ChunkOffset: offset,
			ChunkSize:   length,
			Data:        data,
		}}
	}
}

func fileTimes(info os.FileInfo) (atime, ctime, mtime time.Time) {
	mtime = info.ModTime()
	atime, ctime = platformTimes(info, mtime)
	return
}
