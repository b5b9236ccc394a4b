// Package scheduler runs periodic background jobs such as gauge refreshes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/okian/placar/pkg/logger"
)

// Sentinel kinds for scheduler errors.
var (
	ErrEmptyJobName    = errors.New("job name is required")
	ErrInvalidInterval = errors.New("job interval must be positive")
	ErrEmptyCronExpr   = errors.New("cron expression is required")
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for job lifecycle and panics.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler wraps a gocron scheduler. Jobs never overlap with themselves.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// New creates a Scheduler. Jobs receive a context that is cancelled by Stop.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					s.logger.Error(context.Background(), "scheduler job panicked",
						logger.String("job_id", jobID.String()),
						logger.String("job_name", jobName),
						logger.Any("panic", recoverData),
					)
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s.scheduler = sched
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Every registers task to run every interval.
func (s *Scheduler) Every(name string, interval time.Duration, task func(ctx context.Context)) (uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return uuid.Nil, ErrEmptyJobName
	}
	if interval <= 0 {
		return uuid.Nil, fmt.Errorf("%s: %w", name, ErrInvalidInterval)
	}
	return s.add(name, gocron.DurationJob(interval), task, logger.Duration("interval", interval))
}

// Cron registers task on a cron expression (five fields).
func (s *Scheduler) Cron(name, expr string, task func(ctx context.Context)) (uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return uuid.Nil, ErrEmptyJobName
	}
	if strings.TrimSpace(expr) == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", name, ErrEmptyCronExpr)
	}
	return s.add(name, gocron.CronJob(expr, false), task, logger.String("cron", expr))
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, task func(ctx context.Context), when logger.Field) (uuid.UUID, error) {
	jobLogger := s.logger.Named(name)
	wrapped := func() {
		jobLogger.Debug(s.ctx, "scheduler job started")
		task(s.ctx)
		jobLogger.Debug(s.ctx, "scheduler job completed")
	}

	job, err := s.scheduler.NewJob(def, gocron.NewTask(wrapped), gocron.WithName(name))
	if err != nil {
		jobLogger.Error(s.ctx, "failed to register scheduler job", when, logger.Error(err))
		return uuid.Nil, fmt.Errorf("register job %s: %w", name, err)
	}
	jobLogger.Info(s.ctx, "scheduler job registered", when)
	return job.ID(), nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int { return len(s.scheduler.Jobs()) }

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info(s.ctx, "scheduler starting", logger.Int("jobs", s.Jobs()))
	s.scheduler.Start()
}

// Stop cancels running jobs and shuts the scheduler down. It is safe to call
// more than once.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info(context.Background(), "scheduler stopping")
		s.cancel()
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
