// Package blobstore abstracts the object-store boundary that produced index
// files are uploaded to. The core conversion pipeline only ever talks to the
// Store interface; concrete backends (local directory, memory, S3, MinIO)
// live here and in the s3 and minio subpackages.
package blobstore
