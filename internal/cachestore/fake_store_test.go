package cachestore

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
	"github.com/connected-data-lake/cdl/internal/objectstore"
)

// fakeBackend is an in-memory Store that counts GetOpts calls, standing in
// for a remote backend in tests that assert cache transparency and
// cache-hit avoidance of redundant backend round-trips.
type fakeBackend struct {
	objects  map[string][]byte
	getCalls int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string][]byte{}}
}

func (f *fakeBackend) String() string { return "fake" }

func (f *fakeBackend) put(path string, data []byte) { f.objects[path] = data }

func (f *fakeBackend) Put(_ context.Context, path string, payload []byte) (objectstore.PutResult, error) {
	f.objects[path] = payload
	return objectstore.PutResult{}, nil
}

func (f *fakeBackend) PutOpts(_ context.Context, path string, payload []byte, opts objectstore.PutOptions) (objectstore.PutResult, error) {
	if opts.IfNoneMatch == "*" {
		if _, ok := f.objects[path]; ok {
			return objectstore.PutResult{}, cdlerr.ErrAlreadyExists
		}
	}
	f.objects[path] = payload
	return objectstore.PutResult{}, nil
}

func (f *fakeBackend) GetOpts(_ context.Context, path string, opts objectstore.GetOptions) (*objectstore.GetResult, error) {
	atomic.AddInt64(&f.getCalls, 1)
	data, ok := f.objects[path]
	if !ok {
		return nil, cdlerr.ErrNotFound
	}
	body := data
	if r := opts.Range; r != nil && r.Bounded() {
		end := r.End
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		start := r.Start
		if start > end {
			start = end
		}
		body = data[start:end]
	}
	return &objectstore.GetResult{
		Meta: objectstore.ObjectMeta{Path: path, Size: int64(len(data))},
		Body: io.NopCloser(bytes.NewReader(body)),
	}, nil
}

func (f *fakeBackend) GetRanges(ctx context.Context, path string, ranges []objectstore.Range) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		res, err := f.GetOpts(ctx, path, objectstore.GetOptions{Range: &r})
		if err != nil {
			return nil, err
		}
		out[i], _ = res.Bytes()
	}
	return out, nil
}

func (f *fakeBackend) Head(_ context.Context, path string) (objectstore.ObjectMeta, error) {
	data, ok := f.objects[path]
	if !ok {
		return objectstore.ObjectMeta{}, cdlerr.ErrNotFound
	}
	return objectstore.ObjectMeta{Path: path, Size: int64(len(data))}, nil
}

func (f *fakeBackend) Delete(_ context.Context, path string) error {
	delete(f.objects, path)
	return nil
}

func (f *fakeBackend) List(_ context.Context, prefix string) ([]objectstore.ObjectMeta, error) {
	var out []objectstore.ObjectMeta
	for p, d := range f.objects {
		out = append(out, objectstore.ObjectMeta{Path: p, Size: int64(len(d))})
	}
	return out, nil
}

func (f *fakeBackend) ListWithOffset(ctx context.Context, prefix, offset string) ([]objectstore.ObjectMeta, error) {
	return f.List(ctx, prefix)
}

func (f *fakeBackend) Copy(_ context.Context, from, to string) error {
	f.objects[to] = f.objects[from]
	return nil
}

func (f *fakeBackend) Rename(ctx context.Context, from, to string) error {
	if err := f.Copy(ctx, from, to); err != nil {
		return err
	}
	return f.Delete(ctx, from)
}

func (f *fakeBackend) CopyIfNotExists(ctx context.Context, from, to string) error {
	return f.Copy(ctx, from, to)
}

func (f *fakeBackend) RenameIfNotExists(ctx context.Context, from, to string) error {
	return f.Rename(ctx, from, to)
}
