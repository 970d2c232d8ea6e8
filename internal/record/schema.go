package record

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// FileRecord is one chunk of one file.
type FileRecord struct {
	Name     string
	Parent   string
	Metadata *FileMetadata // nil on non-first chunks
	ChunkID  uint64
	ChunkOffset uint64
	ChunkSize   uint64
	Data        []byte
}

// FileMetadata carries the per-file columns that are only populated on a
// file's first chunk.
type FileMetadata struct {
	Atime time.Time
	Ctime time.Time
	Mtime time.Time
	Mode  uint32
	Size  uint64
}

// Column names, exactly the FileRecord fields above.
const (
	ColName        = "name"
	ColParent      = "parent"
	ColAtime       = "atime"
	ColCtime       = "ctime"
	ColMtime       = "mtime"
	ColMode        = "mode"
	ColSize        = "size"
	ColChunkID     = "chunk_id"
	ColChunkOffset = "chunk_offset"
	ColChunkSize   = "chunk_size"
	ColData        = "data"
)

// Schema is the Arrow schema of the rootfs table: the FileRecord columns
// above, in declaration order.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: ColName, Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: ColParent, Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: ColAtime, Type: &arrow.TimestampType{Unit: arrow.Microsecond}, Nullable: true},
	{Name: ColCtime, Type: &arrow.TimestampType{Unit: arrow.Microsecond}, Nullable: true},
	{Name: ColMtime, Type: &arrow.TimestampType{Unit: arrow.Microsecond}, Nullable: true},
	{Name: ColMode, Type: arrow.PrimitiveTypes.Uint32, Nullable: true},
	{Name: ColSize, Type: arrow.PrimitiveTypes.Uint64, Nullable: true},
	{Name: ColChunkID, Type: arrow.PrimitiveTypes.Uint64, Nullable: false},
	{Name: ColChunkOffset, Type: arrow.PrimitiveTypes.Uint64, Nullable: false},
	{Name: ColChunkSize, Type: arrow.PrimitiveTypes.Uint64, Nullable: false},
	{Name: ColData, Type: arrow.BinaryTypes.Binary, Nullable: true},
}, nil)
