// Package cache provides byte-oriented caching for rendered artifacts,
// exported design files and HTTP responses.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entry files under a local directory (CLI default)
//   - [RedisCache]: shared cache for the API server
//   - [NullCache]: disables caching
//
// Keys are produced by a [Keyer] so that every component derives them the
// same way. [ScopedKeyer] prefixes keys per organization.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
// A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs.
const (
	TTLArtifact = 24 * time.Hour
	TTLDesign   = time.Hour
	TTLHTTP     = 10 * time.Minute
)
