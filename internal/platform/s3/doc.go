// Package s3 reads cluster secrets from S3-compatible object storage.
//
// Secret locations in the cluster configuration may be given as
// s3://bucket/key URLs; this package parses them and fetches the
// referenced objects.
package s3
