// Package storage downloads document content by storage path, scoped to a
// tenant. The production backend is any S3-compatible object store; the
// filesystem backend exists for local development and tests.
package storage

import "context"

// Storage fetches raw document bytes. Implementations enforce tenant scoping:
// a path outside the tenant's prefix is an access error, not a miss.
type Storage interface {
	Download(ctx context.Context, storagePath, tenantID string) ([]byte, error)
}
