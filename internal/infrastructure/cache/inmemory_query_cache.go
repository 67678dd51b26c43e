package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// cacheEntry represents a stored payload with expiration
type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryQueryCache implements QueryCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryQueryCache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryQueryCache creates a new in-memory query cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryQueryCache() *InMemoryQueryCache {
	c := &InMemoryQueryCache{
		entries:  make(map[string]cacheEntry),
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine
	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the cached payload for key
func (c *InMemoryQueryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		return nil, false, nil // Expired, treat as a miss
	}
	return e.payload, true, nil
}

// Set stores payload under key with the given TTL
func (c *InMemoryQueryCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// InvalidateTenant removes every cached entry belonging to the tenant
func (c *InMemoryQueryCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	prefix := tenantID + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (c *InMemoryQueryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryQueryCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryQueryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryQueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryQueryCache implements QueryCache
var _ QueryCache = (*InMemoryQueryCache)(nil)
