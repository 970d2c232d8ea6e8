package codec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/record"
)

func collect(t *testing.T, items <-chan Item) []record.FileRecord {
	t.Helper()
	var out []record.FileRecord
	for item := range items {
		require.NoError(t, item.Err)
		out = append(out, item.Record)
	}
	return out
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// TestEncode_S1Scenario mirrors spec §8.3 S1: a.txt (13 bytes) and
// sub/b.bin (2,500,000 zero bytes) chunked at 1,000,000 bytes should yield
// 1 + 3 records, with sub/b.bin's chunks sized 1,000,000/1,000,000/500,000.
func TestEncode_S1Scenario(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("hello, world!"))
	writeFile(t, filepath.Join(src, "sub", "b.bin"), make([]byte, 2_500_000))

	cat := &catalog.DatasetCatalog{MaxChunkSize: 1_000_000}
	items, err := Encode(context.Background(), src, cat)
	require.NoError(t, err)
	recs := collect(t, items)

	var aRecs, bRecs []record.FileRecord
	for _, r := range recs {
		if r.Name == "a.txt" {
			aRecs = append(aRecs, r)
		} else {
			bRecs = append(bRecs, r)
		}
	}
	require.Len(t, aRecs, 1)
	assert.EqualValues(t, 13, aRecs[0].ChunkSize)
	assert.Equal(t, "hello, world!", string(aRecs[0].Data))

	require.Len(t, bRecs, 3)
	sizes := map[uint64]uint64{}
	for _, r := range bRecs {
		sizes[r.ChunkID] = r.ChunkSize
	}
	assert.EqualValues(t, 1_000_000, sizes[0])
	assert.EqualValues(t, 1_000_000, sizes[1])
	assert.EqualValues(t, 500_000, sizes[2])
}

func TestEncode_ZeroMaxChunkSizeIsOneChunkPerFile(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "f.bin"), make([]byte, 5_000_000))

	cat := &catalog.DatasetCatalog{MaxChunkSize: 0}
	items, err := Encode(context.Background(), src, cat)
	require.NoError(t, err)
	recs := collect(t, items)

	require.Len(t, recs, 1)
	assert.EqualValues(t, 0, recs[0].ChunkOffset)
	assert.EqualValues(t, 5_000_000, recs[0].ChunkSize)
}

func TestEncode_EmptyFileYieldsOneZeroLengthChunk(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "empty.txt"), []byte{})

	cat := &catalog.DatasetCatalog{MaxChunkSize: 100}
	items, err := Encode(context.Background(), src, cat)
	require.NoError(t, err)
	recs := collect(t, items)

	require.Len(t, recs, 1)
	assert.EqualValues(t, 0, recs[0].ChunkSize)
	assert.Empty(t, recs[0].Data)
}

func TestEncode_ExactChunkBoundary(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "exact.bin"), make([]byte, 100))

	cat := &catalog.DatasetCatalog{MaxChunkSize: 100}
	items, err := Encode(context.Background(), src, cat)
	require.NoError(t, err)
	recs := collect(t, items)

	require.Len(t, recs, 1)
	assert.EqualValues(t, 100, recs[0].ChunkSize)
}

func TestEncode_OneByteOverChunkBoundary(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "over.bin"), make([]byte, 101))

	cat := &catalog.DatasetCatalog{MaxChunkSize: 100}
	items, err := Encode(context.Background(), src, cat)
	require.NoError(t, err)
	recs := collect(t, items)

	require.Len(t, recs, 2)
	byID := map[uint64]record.FileRecord{}
	for _, r := range recs {
		byID[r.ChunkID] = r
	}
	assert.EqualValues(t, 100, byID[0].ChunkSize)
	assert.EqualValues(t, 1, byID[1].ChunkSize)
}

func TestEncode_SkipsSymlinks(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "real.txt"), []byte("data"))
	require.NoError(t, os.Symlink(filepath.Join(src, "real.txt"), filepath.Join(src, "link.txt")))

	cat := &catalog.DatasetCatalog{MaxChunkSize: 0}
	items, err := Encode(context.Background(), src, cat)
	require.NoError(t, err)
	recs := collect(t, items)

	require.Len(t, recs, 1)
	assert.Equal(t, "real.txt", recs[0].Name)
}

// TestRoundTrip_DirectoryTree exercises spec §8.1 invariant 1: encode then
// decode into an empty directory reproduces every file's bytes exactly.
func TestRoundTrip_DirectoryTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("hello, world!"))
	writeFile(t, filepath.Join(src, "sub", "b.bin"), bytes(2_500_000, 0x5a))
	writeFile(t, filepath.Join(src, "sub", "deeper", "c.txt"), []byte("nested"))

	ctx := context.Background()
	cat := &catalog.DatasetCatalog{MaxChunkSize: 1_000_000}
	items, err := Encode(ctx, src, cat)
	require.NoError(t, err)

	records := make(chan record.FileRecord)
	go func() {
		defer close(records)
		for item := range items {
			require.NoError(t, item.Err)
			records <- item.Record
		}
	}()

	require.NoError(t, Decode(ctx, dst, records))

	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.bin"), filepath.Join("sub", "deeper", "c.txt")} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got, "mismatch for %s", rel)
	}
}

func bytes(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}
