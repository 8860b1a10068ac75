// Package objstore provides whole-object storage at fixed logical keys.
//
// The purchase ledger is a read-modify-write client of a backend that has
// no partial updates, so every Put rewrites the full object. Writes are
// conditional on the ETag observed at read time, which lets callers detect
// lost updates when two runs touch the same key.
package objstore

import (
	"context"
	"errors"
)

var (
	// ErrNotExist is returned by Get when no object is stored at the key.
	ErrNotExist = errors.New("objstore: object does not exist")

	// ErrETagMismatch is returned by Put when the stored object no longer
	// carries the ETag the caller read. The caller must reload and retry.
	ErrETagMismatch = errors.New("objstore: etag mismatch")
)

// Store reads and writes whole objects at slash-separated logical keys.
type Store interface {
	// Get returns the object and its current ETag.
	Get(ctx context.Context, key string) (data []byte, etag string, err error)

	// Put writes the full object. An empty etag means the object must not
	// exist yet (create); a non-empty etag must match the stored version.
	// The write is durable once Put returns.
	Put(ctx context.Context, key string, data []byte, etag string) error
}
