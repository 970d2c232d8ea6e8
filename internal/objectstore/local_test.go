package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

func TestLocalStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "a/b/c.txt", []byte("hello, world!"))
	require.NoError(t, err)

	res, err := s.GetOpts(ctx, "a/b/c.txt", GetOptions{})
	require.NoError(t, err)
	body, err := res.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello, world!", string(body))
}

func TestLocalStore_GetMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetOpts(ctx, "nope.txt", GetOptions{})
	assert.ErrorIs(t, err, cdlerr.ErrNotFound)
}

func TestLocalStore_RangedGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "f.bin", []byte("0123456789"))
	require.NoError(t, err)

	res, err := s.GetOpts(ctx, "f.bin", GetOptions{Range: &Range{Start: 2, End: 5}})
	require.NoError(t, err)
	body, err := res.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "234", string(body))
}

func TestLocalStore_GetRanges(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "f.bin", []byte("abcdefghij"))
	require.NoError(t, err)

	out, err := s.GetRanges(ctx, "f.bin", []Range{{Start: 0, End: 3}, {Start: 5, End: 10}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "abc", string(out[0]))
	assert.Equal(t, "fghij", string(out[1]))
}

func TestLocalStore_Head(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "f.bin", []byte("12345"))
	require.NoError(t, err)

	meta, err := s.Head(ctx, "f.bin")
	require.NoError(t, err)
	assert.EqualValues(t, 5, meta.Size)

	_, err = s.Head(ctx, "missing.bin")
	assert.ErrorIs(t, err, cdlerr.ErrNotFound)
}

func TestLocalStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "f.bin", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "f.bin"))
	// Deleting again (already gone) is not an error.
	require.NoError(t, s.Delete(ctx, "f.bin"))
}

func TestLocalStore_ListIsSortedByPath(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"b.txt", "a.txt", "sub/c.txt"} {
		_, err := s.Put(ctx, p, []byte("x"))
		require.NoError(t, err)
	}

	out, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a.txt", out[0].Path)
	assert.Equal(t, "b.txt", out[1].Path)
	assert.Equal(t, "sub/c.txt", out[2].Path)
}

func TestLocalStore_ListWithOffset(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := s.Put(ctx, p, []byte("x"))
		require.NoError(t, err)
	}

	out, err := s.ListWithOffset(ctx, "", "a.txt")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b.txt", out[0].Path)
	assert.Equal(t, "c.txt", out[1].Path)
}

func TestLocalStore_CopyIfNotExistsRejectsExisting(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "src.txt", []byte("one"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "dst.txt", []byte("two"))
	require.NoError(t, err)

	err = s.CopyIfNotExists(ctx, "src.txt", "dst.txt")
	assert.Error(t, err)
}

func TestLocalStore_RenameMovesData(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "src.txt", []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, s.Rename(ctx, "src.txt", "dst.txt"))

	_, err = s.Head(ctx, "src.txt")
	assert.ErrorIs(t, err, cdlerr.ErrNotFound)

	res, err := s.GetOpts(ctx, "dst.txt", GetOptions{})
	require.NoError(t, err)
	body, _ := res.Bytes()
	assert.Equal(t, "payload", string(body))
}
