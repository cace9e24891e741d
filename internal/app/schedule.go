package app

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"consent-go/internal/consent"
)

// retryDelay is how long the scheduler waits after failing to compute the
// next tick.
const retryDelay = 30 * time.Second

// Scheduler runs a job on every tick of a cron expression. Runs never
// overlap: a tick that falls while the job is running is skipped.
type Scheduler struct {
	expr   string
	job    func(context.Context) error
	logger consent.Logger
	clock  consent.Clock
	after  func(time.Duration) <-chan time.Time
}

// NewScheduler validates expr and returns a Scheduler for job.
func NewScheduler(expr string, job func(context.Context) error, logger consent.Logger, clock consent.Clock) (*Scheduler, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression: %q", expr)
	}
	return &Scheduler{
		expr:   expr,
		job:    job,
		logger: logger,
		clock:  clock,
		after:  time.After,
	}, nil
}

// Next returns the first tick strictly after t.
func (s *Scheduler) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.expr, t.UTC(), false)
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "cron", s.expr)
	for {
		next, err := s.Next(s.clock.Now())
		if err != nil {
			s.logger.Error("computing next tick failed", "cron", s.expr, "error", err)
			if !s.wait(ctx, retryDelay) {
				return
			}
			continue
		}

		if !s.wait(ctx, next.Sub(s.clock.Now())) {
			return
		}
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}
}

// wait sleeps for d and reports false if ctx ended first.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	select {
	case <-ctx.Done():
		s.logger.Info("scheduler stopping")
		return false
	case <-s.after(d):
		return true
	}
}
