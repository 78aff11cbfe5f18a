// Package sweep runs the periodic batch jobs: certification expiration and
// evidence archival. Jobs are idempotent and use the same audited primitives
// as interactive traffic; there is no unguarded write path.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on fixed intervals until the context is cancelled. A
// failing run is logged and retried on the next tick; only cancellation stops
// a job.
type Scheduler struct {
	logger *slog.Logger
	jobs   []Job
}

// NewScheduler creates a scheduler over the given jobs.
func NewScheduler(logger *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{logger: logger, jobs: jobs}
}

// Start runs all jobs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			return s.runJob(ctx, job)
		})
	}
	return g.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) error {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info("sweep job started", "job", job.Name, "interval", job.Interval.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := job.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep job failed",
					"job", job.Name,
					"error", err.Error(),
				)
				continue
			}
			s.logger.InfoContext(ctx, "sweep job completed",
				"job", job.Name,
				"duration", time.Since(start).String(),
			)
		}
	}
}
