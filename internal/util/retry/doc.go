// Package retry retries connection attempts with exponential backoff.
//
// It is used only by the SSH transport to wait for a node's SSH daemon to
// accept connections. Remote commands and queued operations are never
// retried.
package retry
