// Package minio provides a blobstore.Store implementation for MinIO and
// other S3-compatible object stores that the AWS SDK cannot reach.
package minio
