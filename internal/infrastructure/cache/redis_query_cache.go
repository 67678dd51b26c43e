package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueryCache implements QueryCache using Redis.
// This is suitable for distributed deployments where multiple instances
// need to share cached query results.
type RedisQueryCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisQueryCache creates a new Redis-backed query cache
func NewRedisQueryCache(cfg RedisConfig) (*RedisQueryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueryCache{
		client:     client,
		ownsClient: true,
		keyPrefix:  "analytics:query:",
	}, nil
}

// NewRedisQueryCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisQueryCacheWithClient(client *redis.Client, keyPrefix string) *RedisQueryCache {
	if keyPrefix == "" {
		keyPrefix = "analytics:query:"
	}
	return &RedisQueryCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached payload for key
func (c *RedisQueryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached query: %w", err)
	}
	return payload, true, nil
}

// Set stores payload under key with the given TTL
func (c *RedisQueryCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache query result: %w", err)
	}
	return nil
}

// InvalidateTenant removes every cached entry belonging to the tenant.
// Uses SCAN rather than KEYS so invalidation never blocks the server.
func (c *RedisQueryCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	pattern := c.keyPrefix + tenantID + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate tenant cache: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan tenant cache keys: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate tenant cache: %w", err)
		}
	}
	return nil
}

// Close closes the Redis connection if this cache owns it
func (c *RedisQueryCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

// Ping checks the Redis connection health
func (c *RedisQueryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
