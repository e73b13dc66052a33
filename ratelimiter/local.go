package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter charges each call one request and its estimated tokens
// against two per-minute buckets.
type RateLimiter struct {
	TokensBucket   *TokenBucket
	RequestsBucket *TokenBucket

	mu sync.Mutex
}

var _ Limiter = (*RateLimiter)(nil)

// New creates a limiter that replenishes the given per-minute budgets.
// A non-positive budget disables that dimension.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		TokensBucket:   newBucket(tokensPerMinute),
		RequestsBucket: newBucket(requestsPerMinute),
	}
}

func newBucket(perMinute int) *TokenBucket {
	if perMinute <= 0 {
		return nil
	}
	return NewTokenBucket(perMinute, perMinute, time.Minute)
}

// TryConsume checks both buckets before charging either, so a refused call
// costs nothing.
func (rl *RateLimiter) TryConsume(numTokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.TokensBucket.HasCapacity(numTokens) || !rl.RequestsBucket.HasCapacity(1) {
		return false
	}
	return rl.TokensBucket.TryConsume(numTokens) && rl.RequestsBucket.TryConsume(1)
}

// TimeUntilAvailable is the longer of the two buckets' waits.
func (rl *RateLimiter) TimeUntilAvailable(numTokens int) time.Duration {
	return max(rl.TokensBucket.TimeUntilAvailable(numTokens), rl.RequestsBucket.TimeUntilAvailable(1))
}

// WaitAndConsume sleeps until the charge fits and then takes it. Another
// caller may win the capacity during the sleep, in which case it waits again.
func (rl *RateLimiter) WaitAndConsume(ctx context.Context, numTokens int, maxWait time.Duration) error {
	var deadline time.Time
	if maxWait > 0 {
		deadline = time.Now().Add(maxWait)
	}

	for {
		if rl.TryConsume(numTokens) {
			return nil
		}

		if !rl.TokensBucket.canEverFit(numTokens) {
			return fmt.Errorf("request of %d tokens exceeds the per-minute budget", numTokens)
		}
		// a sub-nanosecond shortfall truncates to zero; still yield to ctx
		wait := max(rl.TimeUntilAvailable(numTokens), time.Millisecond)
		if !deadline.IsZero() && time.Now().Add(wait).After(deadline) {
			return fmt.Errorf("rate limit wait time %v exceeds max wait %v", wait, maxWait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TokenBucket refills continuously at capacity per interval. A nil bucket
// is unlimited.
type TokenBucket struct {
	mu             sync.Mutex
	capacity       float64
	level          float64
	refillInterval time.Duration
	updated        time.Time

	now func() time.Time
}

// NewTokenBucket creates a bucket holding initialTokens of capacity.
func NewTokenBucket(capacity int, initialTokens int, refillInterval time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:       float64(capacity),
		level:          float64(min(initialTokens, capacity)),
		refillInterval: refillInterval,
		updated:        time.Now(),
		now:            time.Now,
	}
}

// refill brings level up to date. Callers hold mu.
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.updated)
	if elapsed <= 0 {
		return
	}
	tb.level = min(tb.capacity, tb.level+tb.capacity*float64(elapsed)/float64(tb.refillInterval))
	tb.updated = now
}

// HasCapacity reports whether tokens fit right now without taking them.
func (tb *TokenBucket) HasCapacity(tokens int) bool {
	if tb == nil {
		return true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return float64(tokens) <= tb.level
}

// TryConsume takes tokens if they fit.
func (tb *TokenBucket) TryConsume(tokens int) bool {
	if tb == nil {
		return true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if float64(tokens) > tb.level {
		return false
	}
	tb.level -= float64(tokens)
	return true
}

func (tb *TokenBucket) canEverFit(tokens int) bool {
	return tb == nil || float64(tokens) <= tb.capacity
}

// Remaining returns the whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	if tb == nil {
		return 0
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.level)
}

// TimeUntilAvailable returns how long until tokens fit. It is zero when they
// fit now or can never fit because they exceed the capacity.
func (tb *TokenBucket) TimeUntilAvailable(tokens int) time.Duration {
	if tb == nil {
		return 0
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()

	need := float64(tokens) - tb.level
	if need <= 0 || float64(tokens) > tb.capacity {
		return 0
	}
	return time.Duration(need * float64(tb.refillInterval) / tb.capacity)
}
