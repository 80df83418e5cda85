package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func TestWait_SameSource_EnforcesMinDelay(t *testing.T) {
	limiter := NewSourceRateLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, model.SourceAdzuna); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, model.SourceAdzuna); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSources_NoCrossBlocking(t *testing.T) {
	limiter := NewSourceRateLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, model.SourceAdzuna); err != nil {
		t.Fatalf("adzuna wait: %v", err)
	}

	// Immediately call for JSearch, which should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, model.SourceJSearch); err != nil {
		t.Fatalf("jsearch wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected jsearch wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_OverrideApplies(t *testing.T) {
	limiter := NewSourceRateLimiter(5*time.Second, map[string]time.Duration{
		model.SourceGetOnBoard: 0,
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, model.SourceGetOnBoard); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("override of 0 should not throttle, waited %v", elapsed)
	}
}

func TestWaiter_SharesSourceLimiter(t *testing.T) {
	limiter := NewSourceRateLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, model.SourceAdzuna); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Waiter(model.SourceAdzuna)(ctx); err != nil {
		t.Fatalf("waiter: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSourceRateLimiter(5*time.Second, nil) // long delay

	// First call to use up the burst.
	if err := limiter.Wait(context.Background(), model.SourceAdzuna); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, model.SourceAdzuna); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for RateLimitedSource test ---

type recordingSource struct {
	called bool
}

func (s *recordingSource) Name() string { return model.SourceAdzuna }

func (s *recordingSource) Fetch(_ context.Context, _ model.SearchCriteria) model.FetchResult {
	s.called = true
	return model.FetchResult{Source: s.Name()}
}

func TestRateLimitedSource_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewSourceRateLimiter(100*time.Millisecond, nil)
	inner := &recordingSource{}
	source := NewRateLimitedSource(inner, limiter)
	ctx := context.Background()

	if res := source.Fetch(ctx, model.SearchCriteria{}); !res.OK() {
		t.Fatalf("first fetch: %v", res.Err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on first fetch")
	}

	inner.called = false

	start := time.Now()
	if res := source.Fetch(ctx, model.SearchCriteria{}); !res.OK() {
		t.Fatalf("second fetch: %v", res.Err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner source was not called on second fetch")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
}

func TestRateLimitedSource_CancelledSkipsInner(t *testing.T) {
	limiter := NewSourceRateLimiter(5*time.Second, nil)
	inner := &recordingSource{}
	source := NewRateLimitedSource(inner, limiter)

	source.Fetch(context.Background(), model.SearchCriteria{})
	inner.called = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := source.Fetch(ctx, model.SearchCriteria{}); res.OK() {
		t.Fatal("expected a failed result")
	}
	if inner.called {
		t.Error("inner source must not be called when the wait fails")
	}
}
