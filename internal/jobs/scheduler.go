// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"agencyops/internal/platform/config"
	"agencyops/pkg/requestcontext"
)

const defaultJobTimeout = 2 * time.Minute

var jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agencyops_job_runs_total",
	Help: "Scheduled job executions by job and outcome",
}, []string{"job", "outcome"})

// CodePurger deletes verification codes that lapsed at or before now.
type CodePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// ContractExpirer expires contracts left unsigned past their window.
type ContractExpirer interface {
	StaleCutoff(now time.Time) time.Time
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler owns the cron runner. Jobs never overlap with themselves.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Scheduler)

func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:  logger,
		timeout: defaultJobTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	return s
}

// Register schedules the maintenance jobs from cfg. An empty schedule or a
// nil target leaves that job out.
func (s *Scheduler) Register(cfg config.JobsConfig, codes CodePurger, contracts ContractExpirer) error {
	if codes != nil && cfg.PurgeCodesSchedule != "" {
		if err := s.add("purge_expired_codes", cfg.PurgeCodesSchedule, func(ctx context.Context, now time.Time) (int, error) {
			return codes.PurgeExpired(ctx, now)
		}); err != nil {
			return err
		}
	}
	if contracts != nil && cfg.ExpireContractSchedule != "" {
		if err := s.add("expire_stale_contracts", cfg.ExpireContractSchedule, func(ctx context.Context, now time.Time) (int, error) {
			return contracts.ExpireStale(ctx, contracts.StaleCutoff(now))
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) add(name, schedule string, fn func(ctx context.Context, now time.Time) (int, error)) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background(), name, fn) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	s.logger.Info("job scheduled", "job", name, "schedule", schedule)
	return nil
}

// RunOnce executes fn with a bounded context and records the outcome.
func (s *Scheduler) RunOnce(ctx context.Context, name string, fn func(ctx context.Context, now time.Time) (int, error)) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	ctx = requestcontext.WithTime(ctx, now)
	start := time.Now()
	n, err := fn(ctx, now)
	if err != nil {
		jobRuns.WithLabelValues(name, "error").Inc()
		s.logger.ErrorContext(ctx, "job failed", "job", name, "affected", n, "error", err)
		return
	}
	jobRuns.WithLabelValues(name, "ok").Inc()
	s.logger.InfoContext(ctx, "job finished", "job", name, "affected", n, "duration_ms", time.Since(start).Milliseconds())
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
