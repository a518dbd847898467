// Package cache keeps JSON snapshots of computed analytics in Redis. Every
// read falls back to direct computation, so a missing or failing Redis only
// costs latency.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studentdesk/internal/metrics"
)

const prefix = "studentdesk:analytics:"

// Cache stores snapshots under a fixed TTL. A nil client disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache. client may be nil.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// get decodes the snapshot at key into dst and reports whether it was found.
func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache get %s failed: %v", key, err)
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("cache decode %s failed: %v", key, err)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

// put overwrites the snapshot at key.
func (c *Cache) put(ctx context.Context, key string, v any) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("cache encode %s failed: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, prefix+key, raw, c.ttl).Err(); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
}

// drop removes the snapshot at key.
func (c *Cache) drop(ctx context.Context, key string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, prefix+key).Err()
}

// load returns the cached value for key or computes and stores it.
func load[T any](ctx context.Context, c *Cache, key string, compute func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.get(ctx, key, &cached) {
		return cached, nil
	}
	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	c.put(ctx, key, v)
	return v, nil
}

// refresh recomputes key unconditionally.
func refresh[T any](ctx context.Context, c *Cache, key string, compute func(context.Context) (T, error)) error {
	v, err := compute(ctx)
	if err != nil {
		return err
	}
	c.put(ctx, key, v)
	return nil
}
