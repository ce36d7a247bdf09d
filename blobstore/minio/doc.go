// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works against MinIO and other S3-compatible services such as Ceph,
// SeaweedFS and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.Dial(minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "build-artifacts",
//	    Prefix:    "cache/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cached := blobstore.NewCachingStore(store, cache, 0)
//
// An existing client can be wrapped directly:
//
//	store := minioblob.NewStore(client, "build-artifacts", "cache/")
package minio
