// Package blobstore abstracts where benchmark datasets and query logs live.
//
// BlobStore is a minimal get/put/list interface over named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem rooted at a directory
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 (multipart uploads via the transfer manager)
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
