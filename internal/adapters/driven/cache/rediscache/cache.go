// Package rediscache provides a query cache adapter backed by Redis.
// Cached result lists are stored as JSON under per-tenant key
// prefixes so a tenant's entries can be invalidated with one scan.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.QueryCache = (*Cache)(nil)

// Default configuration values.
const (
	DefaultAddr    = "localhost:6379"
	DefaultTimeout = 2 * time.Second
)

// scanBatch is the COUNT hint for invalidation scans.
const scanBatch = 200

// Config holds configuration for the Redis cache.
type Config struct {
	// Addr is the Redis server address (default: localhost:6379).
	Addr string

	// Password is the Redis AUTH password.
	Password string

	// DB is the Redis database number.
	DB int

	// Timeout bounds individual cache operations (default: 2s). The
	// cache is an optimization, so operations stay short.
	Timeout time.Duration
}

// Cache stores retrieval results in Redis.
type Cache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewCache creates a Redis-backed query cache.
func NewCache(cfg Config) *Cache {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		timeout: cfg.Timeout,
	}
}

// NewCacheWithClient wraps an existing client. Used in tests with
// miniredis.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, timeout: DefaultTimeout}
}

// Get returns the cached results for key and whether the key was
// present.
func (c *Cache) Get(ctx context.Context, key string) ([]domain.RetrievalResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var results []domain.RetrievalResult
	if err := json.Unmarshal(data, &results); err != nil {
		// A corrupt entry is a miss, not an outage.
		return nil, false, nil
	}
	return results, true, nil
}

// Set stores results under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, results []domain.RetrievalResult, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateTenant removes all cached entries for a tenant by
// scanning the tenant's key prefix.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pattern := fmt.Sprintf("retrieval:%s:*", tenantID)
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
