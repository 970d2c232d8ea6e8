package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// LocalStore is a Store rooted at a local filesystem directory. The cached
// store uses it as its local cache backend.
type LocalStore struct {
	root string
}

// NewLocalStore roots a LocalStore at dir, creating it if absent.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cdlerr.NewIoError(dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, cdlerr.NewIoError(dir, err)
	}
	return &LocalStore{root: abs}, nil
}

func (l *LocalStore) String() string { return "local:" + l.root }

func (l *LocalStore) full(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

func (l *LocalStore) Put(ctx context.Context, path string, payload []byte) (PutResult, error) {
	return l.PutOpts(ctx, path, payload, PutOptions{})
}

// PutOpts implements the create-only-if-absent write with O_EXCL, the
// local-filesystem equivalent of an S3 If-None-Match: "*" conditional put:
// the open itself fails atomically if path already exists, so two
// processes racing PutOpts against the same path can never both win.
// Without IfNoneMatch this falls back to the plain tmp-file-then-rename
// Put.
func (l *LocalStore) PutOpts(_ context.Context, path string, payload []byte, opts PutOptions) (PutResult, error) {
	full := l.full(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return PutResult{}, cdlerr.NewIoError(full, err)
	}

	if opts.IfNoneMatch == "*" {
		f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return PutResult{}, cdlerr.ErrAlreadyExists
			}
			return PutResult{}, cdlerr.NewIoError(full, err)
		}
		_, werr := f.Write(payload)
		cerr := f.Close()
		if werr != nil {
			os.Remove(full)
			return PutResult{}, cdlerr.NewIoError(full, werr)
		}
		if cerr != nil {
			os.Remove(full)
			return PutResult{}, cdlerr.NewIoError(full, cerr)
		}
		return PutResult{}, nil
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return PutResult{}, cdlerr.NewIoError(tmp, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return PutResult{}, cdlerr.NewIoError(full, err)
	}
	return PutResult{}, nil
}

func (l *LocalStore) GetOpts(_ context.Context, path string, opts GetOptions) (*GetResult, error) {
	full := l.full(path)
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cdlerr.ErrNotFound
		}
		return nil, cdlerr.NewIoError(full, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, cdlerr.NewIoError(full, err)
	}

	meta := ObjectMeta{Path: path, Size: info.Size(), LastModified: info.ModTime()}
	if opts.Head {
		f.Close()
		return &GetResult{Meta: meta, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}

	var body io.ReadCloser = f
	if r := opts.Range; r != nil {
		if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
			f.Close()
			return nil, cdlerr.NewIoError(full, err)
		}
		if r.Bounded() {
			body = readCloser{io.LimitReader(f, r.Len()), f}
		}
	}
	return &GetResult{Meta: meta, Body: body}, nil
}

func (l *LocalStore) GetRanges(ctx context.Context, path string, ranges []Range) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		res, err := l.GetOpts(ctx, path, GetOptions{Range: &r})
		if err != nil {
			return nil, err
		}
		b, err := res.Bytes()
		if err != nil {
			return nil, cdlerr.NewIoError(path, err)
		}
		out[i] = b
	}
	return out, nil
}

func (l *LocalStore) Head(_ context.Context, path string) (ObjectMeta, error) {
	full := l.full(path)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMeta{}, cdlerr.ErrNotFound
		}
		return ObjectMeta{}, cdlerr.NewIoError(full, err)
	}
	return ObjectMeta{Path: path, Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (l *LocalStore) Delete(_ context.Context, path string) error {
	full := l.full(path)
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cdlerr.NewIoError(full, err)
	}
	return nil
}

func (l *LocalStore) List(_ context.Context, prefix string) ([]ObjectMeta, error) {
	base := l.full(prefix)
	var out []ObjectMeta
	err := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(l.root, p)
		out = append(out, ObjectMeta{Path: filepath.ToSlash(rel), Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, cdlerr.NewIoError(base, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (l *LocalStore) ListWithOffset(ctx context.Context, prefix, offset string) ([]ObjectMeta, error) {
	all, err := l.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	idx := sort.Search(len(all), func(i int) bool { return all[i].Path > offset })
	return all[idx:], nil
}

func (l *LocalStore) Copy(_ context.Context, from, to string) error {
	src := l.full(from)
	dst := l.full(to)
	data, err := os.ReadFile(src)
	if err != nil {
		return cdlerr.NewIoError(src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return cdlerr.NewIoError(dst, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return cdlerr.NewIoError(dst, err)
	}
	return nil
}

func (l *LocalStore) Rename(ctx context.Context, from, to string) error {
	if err := l.Copy(ctx, from, to); err != nil {
		return err
	}
	return l.Delete(ctx, from)
}

func (l *LocalStore) CopyIfNotExists(ctx context.Context, from, to string) error {
	if _, err := l.Head(ctx, to); err == nil {
		return fmt.Errorf("already exists: %s", to)
	}
	return l.Copy(ctx, from, to)
}

func (l *LocalStore) RenameIfNotExists(ctx context.Context, from, to string) error {
	if _, err := l.Head(ctx, to); err == nil {
		return fmt.Errorf("already exists: %s", to)
	}
	return l.Rename(ctx, from, to)
}

type readCloser struct {
	io.Reader
	io.Closer
}
