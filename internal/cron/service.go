package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
)

const (
	defaultInterval     = time.Hour
	defaultRetryBackoff = time.Minute
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger       *logger.Logger
	Registry     *Registry
	Lock         Lock
	Metrics      *metrics.CronJobMetrics
	Interval     time.Duration
	RetryBackoff time.Duration
}

// Service executes registered cron jobs on a fixed cadence. A failed cycle
// is retried after the shorter backoff instead of the full interval.
//
// Across replicas, the worker that completes a cycle keeps the lock for just
// under one interval, so the jobs run at most once per interval no matter
// when each replica ticks. A failed cycle releases the lock immediately.
type Service struct {
	logg         *logger.Logger
	registry     *Registry
	lock         Lock
	metrics      *metrics.CronJobMetrics
	interval     time.Duration
	retryBackoff time.Duration
	after        func(time.Duration) <-chan time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Service{
		logg:         params.Logger,
		registry:     registry,
		lock:         params.Lock,
		metrics:      params.Metrics,
		interval:     interval,
		retryBackoff: backoff,
		after:        time.After,
	}, nil
}

// Run starts the cron loop until the context is canceled. Job failures never
// stop the loop.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		wait := s.interval
		if err := s.runCycle(ctx); err != nil {
			wait = s.retryBackoff
			s.logg.Error(s.logg.WithField(ctx, "retry_in", wait.String()), "scheduled run failed", err)
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-s.after(wait):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron lock held elsewhere; skipping this cycle")
		return nil
	}

	s.logg.Info(ctx, "scheduled run starting")
	var errs error
	for _, job := range s.registry.Jobs() {
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}

	lockCtx := context.WithoutCancel(ctx)
	if errs != nil {
		if relErr := s.lock.Release(lockCtx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
		s.logg.Info(ctx, "scheduled run complete")
		return errs
	}
	if holdErr := s.lock.Hold(lockCtx, s.holdFor()); holdErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", holdErr.Error()), "cron lock hold failed")
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

// holdFor lapses slightly before the holder's own next tick.
func (s *Service) holdFor() time.Duration {
	return s.interval - s.interval/100
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		duration := time.Since(start)
		s.metrics.ObserveDuration(job.Name(), duration)
		jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
		if err != nil {
			s.logg.Error(jobCtx, "job failed", err)
			s.metrics.IncFailure(job.Name())
			return
		}
		s.logg.Info(jobCtx, "job completed")
		s.metrics.IncSuccess(job.Name())
	}()
	return job.Run(jobCtx)
}
