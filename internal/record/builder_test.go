package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(name string, chunkID, offset, size uint64, data []byte, withMeta bool) FileRecord {
	fr := FileRecord{
		Name:        name,
		Parent:      "/",
		ChunkID:     chunkID,
		ChunkOffset: offset,
		ChunkSize:   size,
		Data:        data,
	}
	if withMeta {
		now := time.Unix(1700000000, 0)
		fr.Metadata = &FileMetadata{Atime: now, Ctime: now, Mtime: now, Mode: 0o644, Size: size}
	}
	return fr
}

func TestBatchBuilder_FlushOnOverflow(t *testing.T) {
	b := NewBatchBuilder(10)
	defer b.Release()

	flushed, err := b.Push(rec("a", 0, 0, 6, []byte("abcdef"), true))
	require.NoError(t, err)
	assert.Nil(t, flushed, "first record never overflows an empty builder")

	// total would become 6+6=12 > 10, and builder is non-empty: flush first.
	flushed, err = b.Push(rec("b", 0, 0, 6, []byte("ghijkl"), true))
	require.NoError(t, err)
	require.NotNil(t, flushed)
	assert.EqualValues(t, 1, flushed.NumRows())
	flushed.Release()

	final := b.Flush()
	require.NotNil(t, final)
	assert.EqualValues(t, 1, final.NumRows())
	final.Release()
}

func TestBatchBuilder_SingleOversizedRecordStillAppends(t *testing.T) {
	// Spec 8.1.3: a batch may exceed the budget only when it holds exactly
	// one record (the record itself is bigger than the whole budget).
	b := NewBatchBuilder(4)
	defer b.Release()

	flushed, err := b.Push(rec("big", 0, 0, 100, make([]byte, 100), true))
	require.NoError(t, err)
	assert.Nil(t, flushed)

	final := b.Flush()
	require.NotNil(t, final)
	assert.EqualValues(t, 1, final.NumRows())
	final.Release()
}

func TestBatchBuilder_FlushEmptyReturnsNil(t *testing.T) {
	b := NewBatchBuilder(1024)
	defer b.Release()
	assert.Nil(t, b.Flush())
}

func TestBatchBuilder_OverflowIsFatal(t *testing.T) {
	b := NewBatchBuilder(^uint64(0))
	defer b.Release()

	_, err := b.Push(rec("a", 0, 0, ^uint64(0), nil, false))
	require.NoError(t, err)

	_, err = b.Push(rec("b", 0, 0, 1, nil, false))
	require.Error(t, err)
}

func TestBatchBuilder_RoundTripThroughRowAt(t *testing.T) {
	b := NewBatchBuilder(1 << 20)
	defer b.Release()

	r1 := rec("a.txt", 0, 0, 5, []byte("hello"), true)
	r2 := rec("a.txt", 1, 5, 3, []byte("!!!"), false)
	_, err := b.Push(r1)
	require.NoError(t, err)
	_, err = b.Push(r2)
	require.NoError(t, err)

	batch := b.Flush()
	require.NotNil(t, batch)
	defer batch.Release()
	require.EqualValues(t, 2, batch.NumRows())

	got0 := RowAt(batch, 0)
	assert.Equal(t, r1.Name, got0.Name)
	assert.Equal(t, r1.Data, got0.Data)
	require.NotNil(t, got0.Metadata)
	assert.Equal(t, r1.Metadata.Mode, got0.Metadata.Mode)
	assert.Equal(t, r1.Metadata.Size, got0.Metadata.Size)

	got1 := RowAt(batch, 1)
	assert.Equal(t, r2.Data, got1.Data)
	assert.Nil(t, got1.Metadata, "non-first chunk carries no metadata")
	assert.EqualValues(t, 1, got1.ChunkID)
	assert.EqualValues(t, 5, got1.ChunkOffset)
}
