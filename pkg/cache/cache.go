// Package cache stores rendered documents.
//
// Serializing a large graph is expensive, and the same request shape (path,
// query, view, format) always renders the same bytes for an unchanged source
// document. The API server and the CLI keep the rendered bytes under a key
// derived from that shape, see [Keyer.DocumentKey].
//
// # Backends
//
//   - [NullCache]: never stores anything (caching disabled, tests)
//   - [FileCache]: one file per entry below a directory (CLI)
//   - [RedisCache]: a Redis server shared by several API instances
//
// All backends are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// TTLDocument is the default lifetime of a rendered document.
const TTLDocument = 10 * time.Minute

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the data stored under key. A missing or expired entry is a
	// miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero or less never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
