package record

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// RowAt reconstructs one FileRecord from row i of an Arrow record batch
// built from Schema. It is the read-side inverse of BatchBuilder.append.
func RowAt(rec arrow.Record, i int) FileRecord {
	nameCol := rec.Column(0).(*array.String)
	parentCol := rec.Column(1).(*array.String)
	atimeCol := rec.Column(2).(*array.Timestamp)
	ctimeCol := rec.Column(3).(*array.Timestamp)
	mtimeCol := rec.Column(4).(*array.Timestamp)
	modeCol := rec.Column(5).(*array.Uint32)
	sizeCol := rec.Column(6).(*array.Uint64)
	chunkIDCol := rec.Column(7).(*array.Uint64)
	chunkOffsetCol := rec.Column(8).(*array.Uint64)
	chunkSizeCol := rec.Column(9).(*array.Uint64)
	dataCol := rec.Column(10).(*array.Binary)

	fr := FileRecord{
		Name:        nameCol.Value(i),
		Parent:      parentCol.Value(i),
		ChunkID:     chunkIDCol.Value(i),
		ChunkOffset: chunkOffsetCol.Value(i),
		ChunkSize:   chunkSizeCol.Value(i),
	}
	if !dataCol.IsNull(i) {
		// Copy out of the Arrow buffer: the record may be released by the
		// caller once this row has been extracted.
		src := dataCol.Value(i)
		fr.Data = append([]byte(nil), src...)
	}
	if !modeCol.IsNull(i) {
		fr.Metadata = &FileMetadata{
			Atime: time.UnixMicro(int64(atimeCol.Value(i))),
			Ctime: time.UnixMicro(int64(ctimeCol.Value(i))),
			Mtime: time.UnixMicro(int64(mtimeCol.Value(i))),
			Mode:  modeCol.Value(i),
			Size:  sizeCol.Value(i),
		}
	}
	return fr
}
