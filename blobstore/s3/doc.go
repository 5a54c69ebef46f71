// Package s3 provides an S3 implementation of the blobstore.Store interface,
// plus a DynamoDB-backed commit log that lets readers discover the newest
// uploaded index atomically.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", s3.WithPrefix("indexes/"))
//
// # Features
//
//   - Multipart uploads via the transfer manager for large index files
//   - CRC32C integrity validation on every put
//   - Range reads for partial fetches
//   - Configurable prefix for multi-tenant isolation
package s3
