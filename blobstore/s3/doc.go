// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "build-artifacts",
//	    s3.WithPrefix("cache/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	cached := blobstore.NewCachingStore(store, cache, 0)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart streaming uploads with CRC32C checksums
//   - Conditional create (If-None-Match) for content-addressed writes
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
