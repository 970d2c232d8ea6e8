// Package catalog holds the DatasetCatalog: the set of enumerated options
// consumed from configuration by every other CDL subsystem. It mirrors rclone's "flag with env-var default" convention
// (fs.Option / configstruct) without pulling in the reflection-based
// configstruct machinery — the option set here is small and fixed, so a
// plain struct populated by cobra flags is a closer match to the original
// project's cdl-catalog (a clap::Parser struct) than a generic config
// loader would be.
package catalog

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Compression selects the fragment compression codec.
type Compression string

// The compression codecs understood by the table writer. Snappy is default.
const (
	CompressionBrotli       Compression = "brotli"
	CompressionGzip         Compression = "gzip"
	CompressionLzo          Compression = "lzo"
	CompressionLz4          Compression = "lz4"
	CompressionLz4Raw       Compression = "lz4-raw"
	CompressionSnappy       Compression = "snappy"
	CompressionUncompressed Compression = "none"
	CompressionZstd         Compression = "zstd"
)

// DatasetCatalog is the enumerated configuration consumed by the codec,
// table, and cached-store layers.
type DatasetCatalog struct {
	MaxChunkSize         uint64
	MaxBufferSize        uint64
	MaxWriteThreads      int
	MaxCacheSize         uint64
	MinCacheObjectSize   uint64
	CacheDir             string
	Compression          Compression
	CompressionLevel     *int
	S3AccessKey          string
	S3SecretKey          string
	S3Region             string
	S3Endpoint           string
}

// Default values, named after the environment variables that override them.
const (
	DefaultCacheDir           = "./cache"
	DefaultMaxBufferSize      = 1 << 30     // 1 GiB
	DefaultMaxCacheSize       = 32 << 30    // 32 GiB
	DefaultMaxChunkSize       = 0           // disabled: one chunk per file
	DefaultMaxWriteThreads    = 2
	DefaultMinCacheObjectSize = 64 << 20 // 64 MiB
	DefaultS3Region           = "auto"
	DefaultS3Endpoint         = "http://object-storage"
)

// New builds a DatasetCatalog from environment variables, applying the
// defaults above. Flags bound via BindFlags override it.
func New() *DatasetCatalog {
	c := &DatasetCatalog{
		MaxChunkSize:       envUint("CDL_MAX_CHUNK_SIZE", DefaultMaxChunkSize),
		MaxBufferSize:      envUint("CDL_MAX_BUFFER_SIZE", DefaultMaxBufferSize),
		MaxWriteThreads:    int(envUint("CDL_MAX_WRITE_THREADS", DefaultMaxWriteThreads)),
		MaxCacheSize:       envUint("CDL_MAX_CACHE_SIZE", DefaultMaxCacheSize),
		MinCacheObjectSize: envUint("CDL_MIN_CACHE_OBJECT_SIZE", DefaultMinCacheObjectSize),
		CacheDir:           envStr("CDL_CACHE_DIR", DefaultCacheDir),
		Compression:        Compression(envStr("CDL_COMPRESSION", string(CompressionSnappy))),
		S3AccessKey:        envStr("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:        envStr("AWS_SECRET_ACCESS_KEY", ""),
		S3Region:           envStr("AWS_REGION", DefaultS3Region),
		S3Endpoint:         envStr("AWS_ENDPOINT_URL", DefaultS3Endpoint),
	}
	if v, ok := os.LookupEnv("CDL_COMPRESSION_LEVEL"); ok {
		if level, err := strconv.Atoi(v); err == nil {
			c.CompressionLevel = &level
		}
	}
	return c
}

// BindFlags registers the catalog's fields as persistent flags on cmd,
// following rclone's pattern of exposing every fs.Option as both a flag
// and an env var (the env var is already applied as the flag's default by
// New, so unset flags fall back to it).
func (c *DatasetCatalog) BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Uint64Var(&c.MaxChunkSize, "max-chunk-size", c.MaxChunkSize, "bytes per chunk; 0 disables chunking")
	flags.Uint64Var(&c.MaxBufferSize, "max-buffer-size", c.MaxBufferSize, "batch byte budget before flush")
	flags.IntVar(&c.MaxWriteThreads, "max-write-threads", c.MaxWriteThreads, "concurrent table writers")
	flags.Uint64Var(&c.MaxCacheSize, "max-cache-size", c.MaxCacheSize, "cache capacity in bytes")
	flags.Uint64Var(&c.MinCacheObjectSize, "min-cache-object-size", c.MinCacheObjectSize, "cache-on-read threshold in bytes")
	flags.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "local cache root")
	flags.StringVar((*string)(&c.Compression), "compression", string(c.Compression), "fragment compression codec")
}

// AllowHTTP reports whether the configured S3 endpoint uses plain HTTP,
// the condition that derives AWS_ALLOW_HTTP in the original project.
func (c *DatasetCatalog) AllowHTTP() bool {
	u, err := url.Parse(c.S3Endpoint)
	return err == nil && u.Scheme == "http"
}

// Validate enforces the required-field checks that the original project's
// clap::Parser performs implicitly via required args.
func (c *DatasetCatalog) Validate(anonymous bool) error {
	if anonymous {
		return nil
	}
	if c.S3AccessKey == "" || c.S3SecretKey == "" {
		return fmt.Errorf("missing S3 credentials: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	}
	return nil
}

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint64) uint64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
