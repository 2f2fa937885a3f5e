// Package storage adapts an S3-compatible object store behind a narrow
// interface. Keys are opaque strings chosen by the upload path; the store
// performs no interpretation of the encrypted blobs it holds.
package storage

import (
	"context"
	"io"
	"time"
)

type ObjectStore interface {
	// Put writes body under key. Overwrites are not expected: the upload
	// path always generates fresh keys.
	Put(ctx context.Context, key string, body []byte) error

	// Get returns a reader over the blob, or common.ErrorNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Head reports whether a blob exists under key.
	Head(ctx context.Context, key string) (bool, error)

	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// PresignGet returns a time-limited URL from which the blob can be
	// fetched directly.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
