// Package cache keeps recently fetched marketplace answers for a TTL so that
// repeated lookups of the same item do not hit rate-limited upstreams.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"skinwatch/internal/logger"
)

// Store holds encoded values with an expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// FetchFunc loads the value for key from the upstream.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// Provider caches results of Fetch per key for TTL. Concurrent misses of
// the same key share one upstream call. A zero TTL or nil Store disables
// caching and every call goes upstream.
type Provider[V any] struct {
	Fetch FetchFunc[V]
	Store Store
	TTL   time.Duration
	// Prefix namespaces keys in a shared store.
	Prefix string
	Log    *slog.Logger

	group singleflight.Group
}

// Get returns the cached value for key or fetches and stores it. Store
// failures degrade to an upstream call and are only logged.
func (c *Provider[V]) Get(ctx context.Context, key string) (V, error) {
	if c.Store == nil || c.TTL <= 0 {
		return c.Fetch(ctx, key)
	}
	k := c.Prefix + key

	if b, ok, err := c.Store.Get(ctx, k); err != nil {
		c.logger().Warn("cache read failed", "key", k, "err", err)
	} else if ok {
		var v V
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		c.logger().Warn("cache entry undecodable", "key", k)
	}

	res, err, _ := c.group.Do(k, func() (any, error) {
		v, err := c.Fetch(ctx, key)
		if err != nil {
			return v, err
		}
		if b, err := json.Marshal(v); err != nil {
			c.logger().Warn("cache encode failed", "key", k, "err", err)
		} else if err := c.Store.Set(ctx, k, b, c.TTL); err != nil {
			c.logger().Warn("cache write failed", "key", k, "err", err)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, fmt.Errorf("fetch %s: %w", key, err)
	}
	return res.(V), nil
}

func (c *Provider[V]) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logger.Discard()
}
