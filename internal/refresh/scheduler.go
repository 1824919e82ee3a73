package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires five minutes before 00, 06, 12 and 18 UTC.
const DefaultSchedule = "55 5,11,17,23 * * *"

// Runner performs one refresh run.
type Runner interface {
	Run(ctx context.Context) Result
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Schedule   string // 5-field cron spec, UTC (default: DefaultSchedule)
	RunOnStart bool   // run once immediately on Start
}

// Scheduler fires refresh runs on a cron schedule.
type Scheduler struct {
	cfg      SchedulerConfig
	job      Runner
	logger   *slog.Logger
	cron     *cron.Cron
	schedule cron.Schedule

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler. The schedule is parsed immediately.
func NewScheduler(cfg SchedulerConfig, job Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cfg:      cfg,
		job:      job,
		logger:   logger,
		schedule: schedule,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.tick))
	return s, nil
}

// Start begins firing runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron.Start()

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}

	s.logger.Info("refresh scheduler started",
		"schedule", s.cfg.Schedule,
		"next", s.Next(time.Now()),
		"run_on_start", s.cfg.RunOnStart,
	)
	return nil
}

// Stop stops firing runs and waits for an in-flight run to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the first fire time after t, in UTC.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// NextRuns returns the next n fire times after t.
func (s *Scheduler) NextRuns(t time.Time, n int) []time.Time {
	runs := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = s.Next(t)
		runs = append(runs, t)
	}
	return runs
}

// tick runs the job once under the scheduler's context.
func (s *Scheduler) tick() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	s.job.Run(ctx)
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
