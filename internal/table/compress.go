package table

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// newCompressWriter wraps w with the codec named by comp.
// Snappy is implemented with klauspost/compress/s2 in its Snappy-compatible
// mode (s2 is a strict superset of the Snappy block/frame format). LZO has
// no maintained pure-Go implementation in the retrieval corpus or the
// wider ecosystem, so it returns ErrUnsupported rather than fabricating one
// (see DESIGN.md).
func newCompressWriter(w io.Writer, comp catalog.Compression, level *int) (io.WriteCloser, error) {
	switch comp {
	case catalog.CompressionUncompressed, "":
		return nopWriteCloser{w}, nil
	case catalog.CompressionSnappy:
		return s2.NewWriter(w, s2.WriterSnappyCompat()), nil
	case catalog.CompressionGzip:
		lvl := gzip.DefaultCompression
		if level != nil {
			lvl = *level
		}
		return gzip.NewWriterLevel(w, lvl)
	case catalog.CompressionZstd:
		opts := []zstd.EOption{zstd.WithEncoderLevel(zstdLevel(level))}
		return zstd.NewWriter(w, opts...)
	case catalog.CompressionBrotli:
		lvl := brotli.DefaultCompression
		if level != nil {
			lvl = *level
		}
		return brotli.NewWriterLevel(w, lvl), nil
	case catalog.CompressionLz4:
		zw := lz4.NewWriter(w)
		return zw, nil
	case catalog.CompressionLz4Raw:
		zw := lz4.NewWriter(w)
		_ = zw.Apply(lz4.BlockChecksumOption(false), lz4.ChecksumOption(false))
		return zw, nil
	case catalog.CompressionLzo:
		return nil, fmt.Errorf("%w: lzo compression has no supported Go implementation", cdlerr.ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", cdlerr.ErrUnsupported, comp)
	}
}

// newDecompressReader wraps r with the inverse of newCompressWriter.
func newDecompressReader(r io.Reader, comp catalog.Compression) (io.ReadCloser, error) {
	switch comp {
	case catalog.CompressionUncompressed, "":
		return io.NopCloser(r), nil
	case catalog.CompressionSnappy:
		return io.NopCloser(s2.NewReader(r)), nil
	case catalog.CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case catalog.CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case catalog.CompressionBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case catalog.CompressionLz4, catalog.CompressionLz4Raw:
		return io.NopCloser(lz4.NewReader(r)), nil
	case catalog.CompressionLzo:
		return nil, fmt.Errorf("%w: lzo compression has no supported Go implementation", cdlerr.ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", cdlerr.ErrUnsupported, comp)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// zstdLevel maps the catalog's optional 1-22 compression level onto one of
// klauspost/compress/zstd's coarse encoder levels.
func zstdLevel(level *int) zstd.EncoderLevel {
	if level == nil {
		return zstd.SpeedDefault
	}
	switch {
	case *level <= 1:
		return zstd.SpeedFastest
	case *level <= 9:
		return zstd.SpeedDefault
	case *level <= 19:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
