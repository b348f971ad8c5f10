// Package fxrate keeps the latest primary to secondary currency rate.
package fxrate

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"skinwatch/internal/logger"
	"skinwatch/internal/price"
)

// DefaultRate is served until the first successful refresh.
var DefaultRate = decimal.RequireFromString("5.50")

// Source fetches the current rate.
type Source interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// Cache holds the rate. Get never blocks and never observes a partial
// update: Refresh builds a new value and swaps the pointer.
type Cache struct {
	src     Source
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration

	cur atomic.Pointer[price.Rate]
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// New returns a cache seeded with def, or DefaultRate when def is not positive.
func New(src Source, def decimal.Decimal, opts ...Option) *Cache {
	c := &Cache{src: src, log: logger.Discard(), now: time.Now, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	if !def.IsPositive() {
		def = DefaultRate
	}
	c.cur.Store(&price.Rate{Value: def, LastUpdated: c.now()})
	return c
}

// Get returns the latest known rate.
func (c *Cache) Get() price.Rate { return *c.cur.Load() }

// Refresh fetches a new rate. Errors and non-positive values are logged and
// the previous rate is kept.
func (c *Cache) Refresh(ctx context.Context) {
	if c.src == nil {
		return
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	v, err := c.src.Fetch(ctx)
	if err != nil {
		c.log.Warn("exchange rate refresh failed", "error", err, "kept", c.Get().Value.String())
		return
	}
	if !v.IsPositive() {
		c.log.Warn("exchange rate refresh returned non-positive value", "value", v.String(), "kept", c.Get().Value.String())
		return
	}
	c.cur.Store(&price.Rate{Value: v, LastUpdated: c.now()})
	c.log.Info("exchange rate refreshed", "value", v.String())
}

// Run refreshes once immediately and then every interval until ctx ends.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	c.Refresh(ctx)
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Refresh(ctx)
		}
	}
}
