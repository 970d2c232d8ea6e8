package cachestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connected-data-lake/cdl/internal/objectstore"
)

func TestNew_ZeroThresholdDisablesWrapper(t *testing.T) {
	backend := newFakeBackend()
	s, err := New(backend, t.TempDir(), 1024, 0)
	require.NoError(t, err)
	assert.Same(t, backend, s, "a zero total-size threshold returns the raw backend unchanged")
}

// TestGetOpts_NonParquetBoundedRangeStillPopulatesCache pins
// requestedSizeForRange's ground truth from original_source's get_opts: a
// non-.parquet path is sized at usize::MAX regardless of its range, so even
// a tiny bounded read on a non-parquet object always clears the threshold
// and is eagerly cached (unlike a .parquet path, where a small bounded
// range is sized at its own length and can bypass the cache).
func TestGetOpts_NonParquetBoundedRangeStillPopulatesCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put("tiny.json", []byte(`{"a":1}`))

	s, err := New(backend, t.TempDir(), 10<<20, 100<<20) // 10MB threshold, 100MB cap
	require.NoError(t, err)
	cs := s.(*CachedStore)

	for i := 0; i < 2; i++ {
		res, err := cs.GetOpts(ctx, "tiny.json", objectstore.GetOptions{Range: &objectstore.Range{Start: 0, End: 1024}})
		require.NoError(t, err)
		body, err := res.Bytes()
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body))
	}
	assert.EqualValues(t, 1, backend.getCalls, "first call populates the cache; the second is served from it")

	entries, _ := os.ReadDir(cs.cacheDir)
	assert.NotEmpty(t, entries, "a non-parquet read is always sized usize::MAX and must populate the cache")
}

// TestGetOpts_ParquetSmallBoundedRangeBypassesCache mirrors the .parquet
// leg of the same ground truth: a small bounded range on a .parquet path
// is sized at its own byte length, so it can fall below the threshold and
// bypass the cache.
func TestGetOpts_ParquetSmallBoundedRangeBypassesCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put("tiny.parquet", []byte(`{"a":1}`))

	s, err := New(backend, t.TempDir(), 10<<20, 100<<20) // 10MB threshold, 100MB cap
	require.NoError(t, err)
	cs := s.(*CachedStore)

	for i := 0; i < 2; i++ {
		res, err := cs.GetOpts(ctx, "tiny.parquet", objectstore.GetOptions{Range: &objectstore.Range{Start: 0, End: 1024}})
		require.NoError(t, err)
		body, err := res.Bytes()
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body))
	}
	assert.EqualValues(t, 2, backend.getCalls, "cache never populated: each call hits the backend")

	entries, _ := os.ReadDir(cs.cacheDir)
	assert.Empty(t, entries, "a small bounded .parquet read must not populate the cache")
}

func TestGetOpts_QualifyingReadPopulatesCacheThenHits(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	payload := make([]byte, 20_000_000)
	backend.put("big.parquet", payload)

	s, err := New(backend, t.TempDir(), 10<<20, 100<<20)
	require.NoError(t, err)
	cs := s.(*CachedStore)

	rng := &objectstore.Range{Start: 0, End: 20_000_000}
	res, err := cs.GetOpts(ctx, "big.parquet", objectstore.GetOptions{Range: rng})
	require.NoError(t, err)
	body, err := res.Bytes()
	require.NoError(t, err)
	assert.Len(t, body, 20_000_000)
	assert.EqualValues(t, 1, backend.getCalls)

	// Second identical call must be served from cache, no further backend call.
	res2, err := cs.GetOpts(ctx, "big.parquet", objectstore.GetOptions{Range: rng})
	require.NoError(t, err)
	body2, err := res2.Bytes()
	require.NoError(t, err)
	assert.Equal(t, body, body2)
	assert.EqualValues(t, 1, backend.getCalls, "a cache hit must not call the backend again")
}

func TestGetOpts_ParquetZeroLengthRangeBypassesCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.put("x.parquet", make([]byte, 1000))

	s, err := New(backend, t.TempDir(), 10, 100<<20)
	require.NoError(t, err)
	cs := s.(*CachedStore)

	// Bounded{10,10}: requested_size = 0, below any positive threshold.
	_, err = cs.GetOpts(ctx, "x.parquet", objectstore.GetOptions{Range: &objectstore.Range{Start: 10, End: 10}})
	require.NoError(t, err)

	entries, _ := os.ReadDir(cs.cacheDir)
	assert.Empty(t, entries)
}

func TestGetOpts_CacheMissPropagatesBackendNotFound(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s, err := New(backend, t.TempDir(), 1, 100<<20)
	require.NoError(t, err)
	cs := s.(*CachedStore)

	_, err = cs.GetOpts(ctx, "missing.parquet", objectstore.GetOptions{})
	assert.Error(t, err, "the object does not exist on the backend either")
}

func TestShrink_EvictsOldestAccessedLargeEntryFirst(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()

	dir := t.TempDir()
	s, err := New(backend, dir, 1024, 100*1024) // every 10KB object counts as "large"; 100KB cap
	require.NoError(t, err)
	cs := s.(*CachedStore)

	const perFile = 10 * 1024
	const n = 11
	for i := 0; i < n; i++ {
		name := objNameForIndex(i)
		backend.put(name, make([]byte, perFile))
		_, err := cs.store(ctx, name)
		require.NoError(t, err)

		// Stagger access times strictly increasing so index 0 is oldest.
		setAccessTime(t, filepath.Join(cs.cacheDir, name), time.Now().Add(time.Duration(i)*time.Minute))
	}

	var total int64
	var remaining []string
	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if info.IsDir() {
			return nil
		}
		total += info.Size()
		remaining = append(remaining, filepath.Base(p))
		return nil
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, total, int64(100*1024), "cache bound invariant: total size must not exceed the threshold")
	assert.Len(t, remaining, n-1, "exactly one file must have been evicted")
	assert.NotContains(t, remaining, objNameForIndex(0), "the oldest-accessed entry must be the one evicted")
}

func objNameForIndex(i int) string {
	return "obj-" + string(rune('a'+i)) + ".bin"
}

func setAccessTime(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, at, at))
}
