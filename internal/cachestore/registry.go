package cachestore

import (
	"github.com/connected-data-lake/cdl/internal/catalog"
	"github.com/connected-data-lake/cdl/internal/objectstore"
)

// BuildForScheme constructs the Store for a dataset, rewriting the s3a
// scheme alias to s3 when dialing the underlying client, then wrapping it
// with the Cached Object Store. This is the Go analogue
// of original_source/crates/cdl-store's CachedObjectStoreProvider::new_store,
// which does the identical rewrite-then-construct sequencing before
// handing the backend to CachedObjectStoreBackend::load_local.
func BuildForScheme(bucket string, cat *catalog.DatasetCatalog) (objectstore.Store, error) {
	backend, err := objectstore.NewS3Store(bucket, objectstore.S3Config{
		AccessKey: cat.S3AccessKey,
		SecretKey: cat.S3SecretKey,
		Region:    cat.S3Region,
		Endpoint:  cat.S3Endpoint,
		AllowHTTP: cat.AllowHTTP(),
		PathStyle: true,
	})
	if err != nil {
		return nil, err
	}
	return New(backend, cat.CacheDir, cat.MinCacheObjectSize, cat.MaxCacheSize)
}
