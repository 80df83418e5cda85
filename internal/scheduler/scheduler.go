// Package scheduler drives pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobscout/internal/pipeline"
)

// DefaultSpec runs once a day at 23:00 local time.
const DefaultSpec = "0 23 * * *"

// Runner executes one pipeline cycle.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Locker guards a cycle across processes. TryLock reports false when
// another holder owns the lock.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Scheduler owns the main loop: one immediate run, then one per cron tick.
type Scheduler struct {
	runner Runner
	spec   string
	locker Locker
	logger *slog.Logger

	mu sync.Mutex // held for the duration of a cycle
}

// New validates spec and returns a scheduler. locker may be nil.
func New(runner Runner, spec string, locker Locker, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{runner: runner, spec: spec, locker: locker, logger: logger}, nil
}

// Run starts the loop. It runs one immediate cycle, then fires on the cron
// schedule. It returns nil when ctx is cancelled (graceful shutdown) after
// any in-flight cycle finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger})),
	)
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", "schedule", s.spec, "locked", s.locker != nil)

	s.RunOnce(ctx)
	c.Start()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

// RunOnce executes a single cycle unless one is already in flight in this
// process or the distributed lock is held elsewhere.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.mu.TryLock() {
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			s.logger.Error("acquiring run lock failed", "error", err)
			return
		}
		if !ok {
			s.logger.Info("run lock held by another instance, skipping tick")
			return
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("releasing run lock failed", "error", err)
			}
		}()
	}

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("run failed", "error", err)
	}
}

// cronLogger routes cron's internal logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
