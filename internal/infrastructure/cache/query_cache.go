package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// QueryCache stores serialized query results keyed by tenant and query shape.
// Implementations must be safe for concurrent use.
type QueryCache interface {
	// Get returns the cached payload for key, with found=false on a miss.
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Set stores payload under key with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// InvalidateTenant removes every cached entry belonging to the tenant.
	// Called after a rollup refresh so readers never see pre-refresh numbers.
	InvalidateTenant(ctx context.Context, tenantID string) error

	// Close releases any resources held by the cache
	Close() error
}

// Key builds a cache key from its parts. The first part after the prefix
// must be the tenant ID so InvalidateTenant can match on it.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// FetchJSON returns the cached value for key, or computes it via load,
// stores the result, and returns it. Cache errors are swallowed: a broken
// cache degrades to computing every time, it never fails the query.
func FetchJSON[T any](ctx context.Context, c QueryCache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if c != nil {
		if payload, found, err := c.Get(ctx, key); err == nil && found {
			var cached T
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	value, err := load(ctx)
	if err != nil {
		return zero, err
	}

	if c != nil {
		if payload, err := json.Marshal(value); err == nil {
			_ = c.Set(ctx, key, payload, ttl)
		}
	}

	return value, nil
}
