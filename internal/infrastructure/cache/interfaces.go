package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache provides TTL-based caching for composed analytics payloads.
// Implementations must treat a missing key as ErrCacheKeyNotFound, not
// as a failure.
type Cache interface {
	// GetJSON retrieves and unmarshals JSON data
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON marshals and stores JSON data with a TTL
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Close closes the cache
	Close() error
}

// ErrCacheKeyNotFound indicates a cache miss
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return fmt.Sprintf("cache key not found: %s", e.Key)
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	_, ok := err.(ErrCacheKeyNotFound)
	return ok
}
