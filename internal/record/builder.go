package record

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// BatchBuilder accumulates FileRecords column-wise and flushes them into
// Arrow record batches bounded by maxBufferSize: column vectors plus a
// running byte total, reified into an immutable batch on flush.
type BatchBuilder struct {
	maxBufferSize uint64
	total         uint64
	alloc         memory.Allocator
	rb            *array.RecordBuilder
}

// NewBatchBuilder creates an empty builder bounded by maxBufferSize.
func NewBatchBuilder(maxBufferSize uint64) *BatchBuilder {
	alloc := memory.DefaultAllocator
	return &BatchBuilder{
		maxBufferSize: maxBufferSize,
		alloc:         alloc,
		rb:            array.NewRecordBuilder(alloc, Schema),
	}
}

// Push appends rec to the builder. If appending rec would push the running
// total past maxBufferSize and the builder is non-empty, it flushes first
// (returning the flushed batch) and then appends rec to a fresh builder.
// Overflow of the accumulator is a fatal ErrOverflow.
func (b *BatchBuilder) Push(rec FileRecord) (arrow.Record, error) {
	newTotal := b.total + rec.ChunkSize
	if newTotal < b.total {
		return nil, fmt.Errorf("%w: %s", cdlerr.ErrOverflow, rec.Name)
	}

	var flushed arrow.Record
	if newTotal > b.maxBufferSize && b.total > 0 {
		flushed = b.flushLocked()
		b.total = rec.ChunkSize
	} else {
		b.total = newTotal
	}

	b.append(rec)
	return flushed, nil
}

func (b *BatchBuilder) append(rec FileRecord) {
	nameB := b.rb.Field(0).(*array.StringBuilder)
	parentB := b.rb.Field(1).(*array.StringBuilder)
	atimeB := b.rb.Field(2).(*array.TimestampBuilder)
	ctimeB := b.rb.Field(3).(*array.TimestampBuilder)
	mtimeB := b.rb.Field(4).(*array.TimestampBuilder)
	modeB := b.rb.Field(5).(*array.Uint32Builder)
	sizeB := b.rb.Field(6).(*array.Uint64Builder)
	chunkIDB := b.rb.Field(7).(*array.Uint64Builder)
	chunkOffsetB := b.rb.Field(8).(*array.Uint64Builder)
	chunkSizeB := b.rb.Field(9).(*array.Uint64Builder)
	dataB := b.rb.Field(10).(*array.BinaryBuilder)

	nameB.Append(rec.Name)
	parentB.Append(rec.Parent)
	if m := rec.Metadata; m != nil {
		atimeB.Append(arrow.Timestamp(m.Atime.UnixMicro()))
		ctimeB.Append(arrow.Timestamp(m.Ctime.UnixMicro()))
		mtimeB.Append(arrow.Timestamp(m.Mtime.UnixMicro()))
		modeB.Append(m.Mode)
		sizeB.Append(m.Size)
	} else {
		atimeB.AppendNull()
		ctimeB.AppendNull()
		mtimeB.AppendNull()
		modeB.AppendNull()
		sizeB.AppendNull()
	}
	chunkIDB.Append(rec.ChunkID)
	chunkOffsetB.Append(rec.ChunkOffset)
	chunkSizeB.Append(rec.ChunkSize)
	if rec.Data == nil {
		dataB.AppendNull()
	} else {
		dataB.Append(rec.Data)
	}
}

// Flush emits whatever remains in the builder, or nil if it is empty.
func (b *BatchBuilder) Flush() arrow.Record {
	if b.rb.Field(0).Len() == 0 {
		return nil
	}
	return b.flushLocked()
}

func (b *BatchBuilder) flushLocked() arrow.Record {
	rec := b.rb.NewRecord()
	b.total = 0
	return rec
}

// Release frees the underlying Arrow buffers.
func (b *BatchBuilder) Release() {
	b.rb.Release()
}
