// Package storage holds the object storage collaborator used to persist and
// clean up generated artifacts. Failures surface as
// domain.ErrStorageUnavailable: callers treat them as non-fatal for cleanup
// and fatal for initial artifact persistence.
package storage

import (
	"context"
	"time"
)

// ObjectStore is the contract consumed by the generation pipeline.
type ObjectStore interface {
	// Upload persists data under key and returns the canonical artifact URL.
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error

	// Presign returns a time-limited download URL for the object at key.
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Owns reports whether rawURL points at an object in this store and, if
	// so, returns its key. Used to recognize our own artifacts when signing
	// responses and cleaning up on delete.
	Owns(rawURL string) (string, bool)
}
