// Package scheduler runs the daily loan jobs: the overdue status refresh and
// the due-date reminder sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/khata/internal/infrastructure/metrics"
	"github.com/iho/khata/internal/usecase"
)

// Job names, also used as metric labels.
const (
	JobOverdueRefresh = "overdue_refresh"
	JobDueReminders   = "due_reminders"
)

// LoanSweeper is the part of the loan use case the jobs drive.
type LoanSweeper interface {
	Today() time.Time
	RefreshOverdue(ctx context.Context, today time.Time) (usecase.SweepResult, error)
	DueReminders(ctx context.Context, today time.Time, leadDays int) (usecase.SweepResult, error)
}

// Config holds the job schedules.
type Config struct {
	OverdueSpec  string // cron spec, minute resolution
	ReminderSpec string
	LeadDays     int
	Location     *time.Location
	JobTimeout   time.Duration
	MaxRetries   uint64
	RetryBackoff time.Duration // first retry delay, backoff default when zero
}

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron    *cron.Cron
	loans   LoanSweeper
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates a scheduler and registers both jobs. It fails on an invalid
// cron spec.
func New(loans LoanSweeper, cfg Config, logger zerolog.Logger, m *metrics.Metrics) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 10 * time.Minute
	}

	logger = logger.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		loans:   loans,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}

	jobs := []struct {
		name string
		spec string
	}{
		{JobOverdueRefresh, cfg.OverdueSpec},
		{JobDueReminders, cfg.ReminderSpec},
	}
	for _, job := range jobs {
		name := job.name
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(context.Background(), name) }); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", job.spec, name, err)
		}
	}

	return s, nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().
		Str("overdue", s.cfg.OverdueSpec).
		Str("reminders", s.cfg.ReminderSpec).
		Str("location", s.cfg.Location.String()).
		Msg("scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}

// RunNow executes a job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) (usecase.SweepResult, error) {
	switch name {
	case JobOverdueRefresh, JobDueReminders:
		return s.run(ctx, name)
	}
	return usecase.SweepResult{}, fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) run(ctx context.Context, name string) (usecase.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	today := s.loans.Today()

	var result usecase.SweepResult
	op := func() error {
		var err error
		switch name {
		case JobOverdueRefresh:
			result, err = s.loans.RefreshOverdue(ctx, today)
		case JobDueReminders:
			result, err = s.loans.DueReminders(ctx, today, s.cfg.LeadDays)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("job", name).Msg("job attempt failed")
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	if s.cfg.RetryBackoff > 0 {
		b.InitialInterval = s.cfg.RetryBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.MaxRetries), ctx)
	err := backoff.Retry(op, policy)

	status := "success"
	event := s.logger.Info()
	switch {
	case err != nil:
		status = "error"
		event = s.logger.Error().Err(err)
	case result.Failed > 0:
		status = "partial"
		event = s.logger.Warn()
	}
	event.
		Str("job", name).
		Str("today", today.Format(time.DateOnly)).
		Int("scanned", result.Scanned).
		Int("changed", result.Changed).
		Int("overdue", result.Overdue).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("job finished")

	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues(name, status).Inc()
		s.metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}

	return result, err
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
