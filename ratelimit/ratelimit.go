// Package ratelimit provides a token-bucket limiter for studios backed by
// metered remote APIs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter is the rate limiting contract consumed by a studio.
// Implementations can be local (in-memory) or distributed.
type Limiter interface {
	// TryConsume atomically checks capacity and consumes tokens if
	// available, returning false when capacity is insufficient.
	TryConsume(tokens int) bool

	// TimeUntilAvailable returns how long until the tokens would be
	// available. Read-only.
	TimeUntilAvailable(tokens int) time.Duration

	// Wait blocks until the tokens can be consumed, the context is
	// cancelled, or maxWait (when non-zero) is exceeded.
	Wait(ctx context.Context, tokens int, maxWait time.Duration) error
}

// RateLimiter enforces per-minute token and request budgets.
type RateLimiter struct {
	tokens   *bucket
	requests *bucket
}

var _ Limiter = (*RateLimiter)(nil)

// New creates a limiter with per-minute budgets. A zero budget means the
// corresponding dimension is unlimited.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		tokens:   newBucket(tokensPerMinute, time.Minute),
		requests: newBucket(requestsPerMinute, time.Minute),
	}
}

func (rl *RateLimiter) TryConsume(tokens int) bool {
	return rl.tokens.consume(tokens) && rl.requests.consume(1)
}

func (rl *RateLimiter) TimeUntilAvailable(tokens int) time.Duration {
	tokenWait := rl.tokens.timeUntilAvailable(tokens)
	requestWait := rl.requests.timeUntilAvailable(1)
	if tokenWait > requestWait {
		return tokenWait
	}
	return requestWait
}

func (rl *RateLimiter) Wait(ctx context.Context, tokens int, maxWait time.Duration) error {
	wait := rl.TimeUntilAvailable(tokens)
	if wait > 0 {
		if maxWait > 0 && wait > maxWait {
			return fmt.Errorf("rate limit wait %v exceeds max wait %v", wait, maxWait)
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if !rl.TryConsume(tokens) {
		return fmt.Errorf("failed to acquire %d tokens after waiting", tokens)
	}
	return nil
}

// bucket is a fixed-window token bucket refilled proportionally over the
// interval. A capacity of zero disables the bucket.
type bucket struct {
	mu         sync.Mutex
	capacity   int
	remaining  int
	interval   time.Duration
	lastRefill time.Time
}

func newBucket(capacity int, interval time.Duration) *bucket {
	return &bucket{
		capacity:   capacity,
		remaining:  capacity,
		interval:   interval,
		lastRefill: time.Now(),
	}
}

func (b *bucket) consume(tokens int) bool {
	if b.capacity <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	if tokens <= b.remaining {
		b.remaining -= tokens
		return true
	}
	return false
}

func (b *bucket) timeUntilAvailable(tokens int) time.Duration {
	if b.capacity <= 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)

	remaining := b.remaining
	if elapsed >= b.interval {
		remaining = b.capacity
	} else if elapsed > 0 {
		refilled := int(float64(b.capacity) * (float64(elapsed) / float64(b.interval)))
		remaining = min(b.capacity, b.remaining+refilled)
	}

	if tokens <= remaining {
		return 0
	}

	needed := tokens - remaining
	rate := float64(b.capacity) / float64(b.interval)
	wait := time.Duration(float64(needed) / rate)

	// Small buffer so the caller does not wake up a hair too early.
	return wait + wait/10
}

func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed >= b.interval {
		b.remaining = b.capacity
		b.lastRefill = now
		return
	}
	if elapsed > 0 {
		refilled := int(float64(b.capacity) * (float64(elapsed) / float64(b.interval)))
		if refilled > 0 {
			b.remaining = min(b.capacity, b.remaining+refilled)
			b.lastRefill = now
		}
	}
}
