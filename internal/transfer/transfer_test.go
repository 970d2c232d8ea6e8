package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/objectstore"
	"github.com/connected-data-lake/cdl/internal/record"
	"github.com/connected-data-lake/cdl/internal/table"
)

func testDataset() record.DatasetPath {
	return record.DatasetPath{Scheme: record.S3, Name: "testbucket"}
}

func testCatalog() *catalog.DatasetCatalog {
	return &catalog.DatasetCatalog{MaxBufferSize: 1 << 20, MaxChunkSize: 1 << 20, Compression: catalog.CompressionSnappy}
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
}

func TestUpload_EncodesTreeAndCommitsVersion(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeTree(t, src, map[string][]byte{
		"a.txt":        []byte("hello"),
		"sub/b.bin":    make([]byte, 1500),
		"sub/deep/c":   []byte("nested file"),
	})

	store, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tbl, err := table.CreateTable(ctx, store, testDataset(), testCatalog())
	require.NoError(t, err)

	newTbl, err := Upload(ctx, src, tbl, testCatalog())
	require.NoError(t, err)
	assert.EqualValues(t, 1, newTbl.Version())
	assert.EqualValues(t, 3, newTbl.RowCount())
}

func TestUpload_PropagatesEncodeError(t *testing.T) {
	ctx := context.Background()
	store, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tbl, err := table.CreateTable(ctx, store, testDataset(), testCatalog())
	require.NoError(t, err)

	_, err = Upload(ctx, filepath.Join(t.TempDir(), "does-not-exist"), tbl, testCatalog())
	assert.Error(t, err)
}

// TestUploadDownload_RoundTrip mirrors the overall cp round trip: a local
// tree uploaded into a table and downloaded back reproduces every file.
func TestUploadDownload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string][]byte{
		"a.txt":     []byte("hello, world!"),
		"sub/b.bin": bytesOf(5000, 0x7a),
	})

	store, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tbl, err := table.CreateTable(ctx, store, testDataset(), testCatalog())
	require.NoError(t, err)

	tbl, err = Upload(ctx, src, tbl, testCatalog())
	require.NoError(t, err)

	require.NoError(t, Download(ctx, tbl, dst))

	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.bin")} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got, "mismatch for %s", rel)
	}
}

func TestCopyLocalToLocal_ReproducesTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string][]byte{
		"a.txt":          []byte("top level"),
		"nested/b.txt":   []byte("one deep"),
		"nested/more/c":  []byte("two deep"),
	})

	require.NoError(t, CopyLocalToLocal(src, dst))

	for _, rel := range []string{"a.txt", filepath.Join("nested", "b.txt"), filepath.Join("nested", "more", "c")} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got, "mismatch for %s", rel)
	}
}

func TestCopyLocalToLocal_MissingSourceErrors(t *testing.T) {
	dst := t.TempDir()
	err := CopyLocalToLocal(filepath.Join(dst, "nope"), dst)
	assert.Error(t, err)
}

func bytesOf(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}
