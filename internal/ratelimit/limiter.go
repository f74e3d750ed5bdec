// Package ratelimit enforces provider request budgets: a minimum spacing
// between successive requests to one provider plus a cap on concurrently
// in-flight requests.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests to a single provider. Callers beyond the in-flight
// cap are not dropped; they wait.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	slots   chan struct{}
}

// New creates a limiter with the given minimum delay between request starts
// and maximum number of concurrently in-flight requests.
func New(name string, minDelay time.Duration, maxInFlight int) *Limiter {
	if minDelay <= 0 {
		minDelay = time.Millisecond
	}
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(minDelay), 1),
		slots:   make(chan struct{}, maxInFlight),
	}
}

// Acquire blocks until a request slot is free and the minimum spacing since
// the previous request start has elapsed. Returns an error only when the
// context is cancelled while waiting. Every successful Acquire must be paired
// with a Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("rate limit acquire for %s: %w", l.name, ctx.Err())
	}

	if err := l.limiter.Wait(ctx); err != nil {
		<-l.slots
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Release frees the slot taken by a successful Acquire.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}

// Registry hands out one Limiter per provider, created on first use.
type Registry struct {
	mu          sync.Mutex
	limiters    map[string]*Limiter
	minDelay    time.Duration
	maxInFlight int
}

// NewRegistry creates a registry whose limiters share the given policy.
func NewRegistry(minDelay time.Duration, maxInFlight int) *Registry {
	return &Registry{
		limiters:    make(map[string]*Limiter),
		minDelay:    minDelay,
		maxInFlight: maxInFlight,
	}
}

// Get returns the limiter for the named provider, creating it if needed.
func (r *Registry) Get(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[name]
	if !ok {
		l = New(name, r.minDelay, r.maxInFlight)
		r.limiters[name] = l
	}
	return l
}
