// Package retry wraps a model.Source with backoff on transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Ensure RetrySource implements model.Source.
var _ model.Source = (*RetrySource)(nil)

// RetrySource is a decorator that retries transient failures with exponential
// backoff and jitter before giving up on the wrapped Source.
type RetrySource struct {
	inner      model.Source
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetrySource wraps a Source with retry logic.
// maxRetries is the number of additional attempts after the first failure (default: 2).
// baseDelay is the delay before the first retry (default: 5s), doubled on each subsequent retry.
func NewRetrySource(inner model.Source, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetrySource {
	return &RetrySource{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Name returns the wrapped source's name.
func (s *RetrySource) Name() string { return s.inner.Name() }

// Fetch calls the wrapped source, retrying while the failure is transient.
func (s *RetrySource) Fetch(ctx context.Context, criteria model.SearchCriteria) model.FetchResult {
	res := s.inner.Fetch(ctx, criteria)
	if res.OK() || !isRetryable(res.Err) {
		return res
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delay := s.backoffDelay(attempt, res.Err)

		s.logger.Warn("retrying after transient error",
			"source", s.Name(),
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", res.Err,
		)

		select {
		case <-ctx.Done():
			return model.Failed(s.Name(), fmt.Errorf("retry cancelled: %w", ctx.Err()))
		case <-time.After(delay):
		}

		res = s.inner.Fetch(ctx, criteria)
		if res.OK() || !isRetryable(res.Err) {
			return res
		}
	}

	return res
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (s *RetrySource) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Transient()
	}

	// Non-HTTP errors (network, DNS, decode) are retried.
	return true
}
