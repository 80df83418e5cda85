package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned by a Notifier with no destination set. Nothing
// was sent, so callers must not treat the listings as delivered.
var ErrNotConfigured = errors.New("notifier not configured")

// HTTPError is returned by adapters when a vendor API answers with a
// non-2xx status. The retry decorator inspects StatusCode and RetryAfter.
type HTTPError struct {
	Source     string
	StatusCode int
	RetryAfter time.Duration // zero if the vendor sent no Retry-After
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Source, e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Transient reports whether the status is worth retrying (429 or 5xx).
func (e *HTTPError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
