package cache

import (
	"fmt"

	"github.com/sasa-apparel/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// QueryCacheFactory creates query caches based on configuration
type QueryCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// QueryCacheFactoryOption is a functional option for configuring the factory
type QueryCacheFactoryOption func(*QueryCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) QueryCacheFactoryOption {
	return func(f *QueryCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) QueryCacheFactoryOption {
	return func(f *QueryCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewQueryCacheFactory creates a new factory
func NewQueryCacheFactory(cfg config.RedisConfig, opts ...QueryCacheFactoryOption) *QueryCacheFactory {
	f := &QueryCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed query cache
func (f *QueryCacheFactory) CreateRedisCache() (QueryCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	c, err := NewRedisQueryCache(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis query cache: %w", err)
	}

	return c, nil
}

// CreateInMemoryCache creates an in-memory query cache.
// This is suitable for single-instance deployments and testing.
// WARNING: In-memory caches do not share state across process instances,
// so invalidation after a refresh only reaches the local instance.
func (f *QueryCacheFactory) CreateInMemoryCache() QueryCache {
	return NewInMemoryQueryCache()
}

// CreateCache creates a query cache based on whether Redis is available.
// It tries Redis first, and falls back to in-memory if Redis is not available
// and AllowInMemoryFallback is true.
func (f *QueryCacheFactory) CreateCache() (QueryCache, error) {
	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis query cache")
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for query cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory query cache. "+
		"Invalidation after a refresh will not reach other instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
