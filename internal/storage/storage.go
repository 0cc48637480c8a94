package storage

import (
	"context"
)

// BlobStore is the narrow contract for raw byte persistence under
// caller-chosen object keys. Implementations must be independently safe to
// run to completion even if the caller has moved on: joined fan-outs do not
// propagate cancellation.
type BlobStore interface {

	// Save persists the bytes under the given key.
	Save(ctx context.Context, key string, data []byte) error

	// Find retrieves the bytes stored under the key. A missing object is
	// reported as api.ErrNotFound.
	Find(ctx context.Context, key string) ([]byte, error)

	// Replace overwrites the bytes stored under the key.
	Replace(ctx context.Context, key string, data []byte) error

	// Delete removes the object stored under the key.
	Delete(ctx context.Context, key string) error
}
