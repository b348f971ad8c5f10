// Package ratelimit gates outbound marketplace calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks until a call may proceed or ctx ends.
type Limiter interface {
	Wait(ctx context.Context) error
}

// New picks a limiter from per-minute and minimum-interval settings: a token
// bucket when rpm is set, otherwise a minimum interval, otherwise nil.
func New(rpm, burst int, minInterval time.Duration) Limiter {
	if rpm > 0 {
		if burst <= 0 {
			burst = 1
		}
		return NewTokenBucket(float64(rpm)/60.0, burst)
	}
	if minInterval > 0 {
		return &MinInterval{Interval: minInterval}
	}
	return nil
}

// MinInterval spaces calls at least Interval apart. Each caller reserves the
// next slot, so concurrent callers queue instead of firing together.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
