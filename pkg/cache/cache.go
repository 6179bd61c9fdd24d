// Package cache stores generated layouts and rendered artifacts so repeated
// CLI runs and inspector requests skip the pipeline.
//
// # Backends
//
//   - [FileCache]: entries as JSON files under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance
//   - [MongoCache]: a MongoDB collection with per-document expiry
//   - [NullCache]: caching disabled
//
// # Keys
//
// Keys are produced by a [Keyer] from a hash of everything that influences
// the cached value. Layout keys cover settings, tuning and scene; artifact
// keys add the output format on top of the layout hash. A [ScopedKeyer]
// prefixes keys so several tenants can share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. A missing or
	// expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default lifetimes per entry type. Layouts are pure functions of their key,
// so they only expire to bound disk and memory use.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)
