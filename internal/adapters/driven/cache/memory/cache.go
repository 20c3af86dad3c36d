// Package memory provides an in-process query cache. Used when no
// Redis endpoint is configured; entries expire lazily on read.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.QueryCache = (*Cache)(nil)

type cacheEntry struct {
	results   []domain.RetrievalResult
	expiresAt time.Time
}

// Cache stores retrieval results in process memory.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty in-memory query cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached results for key and whether the key was
// present and unexpired.
func (c *Cache) Get(_ context.Context, key string) ([]domain.RetrievalResult, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.results, true, nil
}

// Set stores results under key with the given TTL.
func (c *Cache) Set(_ context.Context, key string, results []domain.RetrievalResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		results:   results,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// InvalidateTenant removes all cached entries for a tenant.
func (c *Cache) InvalidateTenant(_ context.Context, tenantID string) error {
	prefix := "retrieval:" + tenantID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}
