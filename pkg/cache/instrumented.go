package cache

import (
	"context"
	"time"

	"github.com/matzehuels/graphwriter/pkg/observability"
)

// Instrumented reports hits, misses and writes of a cache to
// [observability.Cache]. keyType labels the events, e.g. "document".
type Instrumented struct {
	Cache
	keyType string
}

// NewInstrumented wraps c.
func NewInstrumented(c Cache, keyType string) *Instrumented {
	return &Instrumented{Cache: c, keyType: keyType}
}

// Get retrieves a value and records a hit or miss.
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		return data, ok, err
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, c.keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, c.keyType)
	}
	return data, ok, nil
}

// Set stores a value and records the write.
func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}

// Clear forwards to the wrapped cache when it supports clearing.
func (c *Instrumented) Clear(ctx context.Context) (int, error) {
	if cl, ok := c.Cache.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return 0, nil
}
