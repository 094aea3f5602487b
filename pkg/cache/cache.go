// Package cache provides generic, thread-safe cache implementations used
// as the substrate for flume's writer cache.
//
// Two cache types are available:
//   - SimpleCache: no eviction policy (stores items indefinitely)
//   - LRUCache: least-recently-used eviction bounded by a maximum size
//
// Both are thread-safe with built-in statistics and optional Prometheus
// metrics integration via functional options. The LRU eviction callback
// is what lets the sink close a writer when its cache slot is reclaimed.
package cache

import (
	"github.com/ExactTargetDev/flume/errors"
)

// Cache is the generic cache interface all implementations satisfy.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found,
	// zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry
	// was created, false if an existing one was updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries.
	Size() int

	// Keys returns all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics
}

// EvictCallback is called when an entry is evicted from the cache,
// receiving the evicted key and value.
type EvictCallback[V any] func(key string, value V)

// NewLRU creates a bounded cache that evicts the least recently used
// entry once maxSize is exceeded.
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewLRU",
			"maxSize must be positive")
	}
	return newLRUCache(maxSize, applyOptions(options...))
}

// NewSimple creates an unbounded cache with no eviction policy.
func NewSimple[V any](options ...Option[V]) (Cache[V], error) {
	return newSimpleCache(applyOptions(options...))
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "validateKey",
			"key cannot be empty")
	}
	return nil
}
