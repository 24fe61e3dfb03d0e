package cache

import (
	"context"
	"time"
)

// Cache is the small key-value surface the services need. Values are JSON
// encoded. A nil Cache is always acceptable at call sites; callers fall
// back to recomputing.
type Cache interface {
	// Get unmarshals the cached value into dest and reports whether the key
	// was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
