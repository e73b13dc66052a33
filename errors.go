package museai

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when a rate limit is hit.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

var (
	// ErrEmptyResult is returned when a remote call succeeded but produced no usable payload.
	ErrEmptyResult = errors.New("empty result from model")

	// ErrNoImage is returned when an image response carries no inline image part.
	ErrNoImage = fmt.Errorf("%w: no image in response", ErrEmptyResult)

	// ErrInputTooLarge is returned when a request exceeds the routed model's context or image limits.
	ErrInputTooLarge = errors.New("input exceeds model limits")

	// ErrStorageNotConfigured is returned when storage operations are attempted
	// without a configured storage backend.
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// IsEmptyResult reports whether err means the model answered without a usable payload.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
