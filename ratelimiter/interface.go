// Package ratelimiter meters calls to remote models in tokens and requests
// per minute.
package ratelimiter

import (
	"context"
	"time"
)

// Limiter guards one model's budget. The local token bucket is the only
// implementation here; a shared store can satisfy the same contract when
// several processes use one API key.
type Limiter interface {
	// TryConsume charges one request and numTokens tokens if both fit.
	TryConsume(numTokens int) bool

	// TimeUntilAvailable estimates the wait before numTokens would fit.
	TimeUntilAvailable(numTokens int) time.Duration

	// WaitAndConsume blocks until the charge fits, ctx ends, or maxWait
	// elapses. A zero maxWait waits for as long as ctx allows.
	WaitAndConsume(ctx context.Context, numTokens int, maxWait time.Duration) error
}
