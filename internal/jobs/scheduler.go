package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is a job run by the Scheduler.
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}

// Scheduler runs a Runner once at start-up and then on a cron schedule.
// A run that would overlap the previous one is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	spec    string
	logger  *zap.Logger
	running atomic.Bool
	ctx     context.Context
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler for a standard five-field cron spec or a
// descriptor such as "@daily".
func NewScheduler(runner Runner, spec string, logger *zap.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		runner: runner,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start runs the job immediately in the background and schedules the next runs.
// Runs use ctx, so cancelling it aborts the job in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("scheduling update: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.spec))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
	return nil
}

// Stop stops scheduling and waits for the job in progress.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous update still running, skipping")
		return
	}
	defer s.running.Store(false)

	if _, err := s.runner.Run(s.ctx); err != nil {
		s.logger.Error("scheduled update failed", zap.Error(err))
	}
}

// cronLogger adapts zap to the cron logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
