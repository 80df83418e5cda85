// Package ratelimit throttles requests per vendor API.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobscout/internal/model"
)

// SourceRateLimiter enforces a minimum delay between requests to the same
// vendor, with optional per-vendor overrides.
type SourceRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter // key: source name
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewSourceRateLimiter creates a limiter that spaces consecutive requests to
// one source by minDelay, or by overrides[source] when present.
func NewSourceRateLimiter(minDelay time.Duration, overrides map[string]time.Duration) *SourceRateLimiter {
	return &SourceRateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// Wait blocks until the given source may be called again.
// Returns an error if the context is cancelled while waiting.
func (r *SourceRateLimiter) Wait(ctx context.Context, source string) error {
	if err := r.limiter(source).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", source, err)
	}
	return nil
}

// Waiter binds Wait to one source, for adapters that issue several requests
// within a single Fetch.
func (r *SourceRateLimiter) Waiter(source string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return r.Wait(ctx, source)
	}
}

func (r *SourceRateLimiter) limiter(source string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[source]; ok {
		return l
	}

	delay := r.minDelay
	if d, ok := r.overrides[source]; ok {
		delay = d
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	l := rate.NewLimiter(limit, 1)
	r.limiters[source] = l
	return l
}

// Ensure RateLimitedSource implements model.Source.
var _ model.Source = (*RateLimitedSource)(nil)

// RateLimitedSource is a decorator that waits on the shared limiter before
// delegating to the wrapped Source.
type RateLimitedSource struct {
	inner   model.Source
	limiter *SourceRateLimiter
}

// NewRateLimitedSource wraps a Source with per-source rate limiting.
// All sources should share the same limiter instance.
func NewRateLimitedSource(inner model.Source, limiter *SourceRateLimiter) *RateLimitedSource {
	return &RateLimitedSource{inner: inner, limiter: limiter}
}

// Name returns the wrapped source's name.
func (s *RateLimitedSource) Name() string { return s.inner.Name() }

// Fetch waits for the limiter, then delegates to the wrapped source.
func (s *RateLimitedSource) Fetch(ctx context.Context, criteria model.SearchCriteria) model.FetchResult {
	if err := s.limiter.Wait(ctx, s.Name()); err != nil {
		return model.Failed(s.Name(), err)
	}
	return s.inner.Fetch(ctx, criteria)
}
