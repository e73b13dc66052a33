package ratelimiter

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Registry.Get for models without a limiter.
var ErrNotFound = errors.New("rate limiter not found")

// Registry manages rate limiters for different models.
type Registry interface {
	Get(model string) (Limiter, error)
	Set(model string, limiter Limiter)
}

type mapRegistry struct {
	registry map[string]Limiter
	mu       sync.RWMutex
}

// NewRegistry creates a new in-memory rate limiter registry.
func NewRegistry() Registry {
	return &mapRegistry{
		registry: make(map[string]Limiter),
	}
}

func (r *mapRegistry) Get(model string) (Limiter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limiter, exists := r.registry[model]
	if !exists {
		return nil, fmt.Errorf("%w for model: %s", ErrNotFound, model)
	}
	return limiter, nil
}

// Set registers limiter for model; a nil limiter removes the entry.
func (r *mapRegistry) Set(model string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter == nil {
		delete(r.registry, model)
		return
	}
	r.registry[model] = limiter
}
