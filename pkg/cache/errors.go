package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Require when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Require returns the cached value for key or ErrCacheMiss.
func Require(ctx context.Context, c Cache, key string) ([]byte, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// GetOrFill returns the cached value for key, or calls fill and stores its
// result with ttl. The boolean reports a cache hit. Cache read and write
// failures degrade to a miss; fill errors are returned as-is.
func GetOrFill(ctx context.Context, c Cache, key string, ttl time.Duration, fill func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, err := fill(ctx)
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(ctx, key, data, ttl)
	return data, false, nil
}
