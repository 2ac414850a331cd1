package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/observability"
	"github.com/spec-kit/helpdesk-portal/internal/service"
)

// Sweeper runs one escalation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// EscalationScheduler runs the unassigned-ticket sweep on a cron schedule.
type EscalationScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// SchedulerOptions configures the escalation scheduler.
type SchedulerOptions struct {
	Schedule string
	Location *time.Location
	// Timeout bounds a single sweep. Zero means five minutes.
	Timeout time.Duration
	Clock   func() time.Time
}

// NewEscalationScheduler parses the schedule and registers the sweep job. The
// scheduler does not run until Start is called.
func NewEscalationScheduler(opts SchedulerOptions, sweeper Sweeper, metrics *observability.Metrics, logger *zap.Logger) (*EscalationScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &EscalationScheduler{
		sweeper: sweeper,
		metrics: metrics,
		logger:  logger,
		timeout: opts.Timeout,
		now:     opts.Clock,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}

	cronLogger := zapCronLogger{sugar: logger.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(opts.Schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("parse escalation schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

// Start begins running scheduled sweeps in the background.
func (s *EscalationScheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info("escalation sweep scheduled", zap.Time("next_run", entry.Next))
	}
}

// Stop halts the scheduler. The returned context is done once a running sweep finishes.
func (s *EscalationScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a sweep immediately and records its outcome.
func (s *EscalationScheduler) RunOnce(ctx context.Context) (service.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := s.now()
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("escalation sweep failed", zap.Error(err))
		return result, err
	}
	s.metrics.RecordSweep(started, result.Notified)
	s.logger.Info("escalation sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("due", result.Due),
		zap.Int("notified", result.Notified),
		zap.Int("suppressed", result.Suppressed),
		zap.Duration("took", s.now().Sub(started)),
	)
	return result, nil
}

func (s *EscalationScheduler) runScheduled() {
	_, _ = s.RunOnce(context.Background())
}

type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
