// Package scheduler runs periodic maintenance: reaping idle sessions and snapshotting the
// vector index to disk.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs named jobs on cron schedules. A run that is still in progress when
// its next tick arrives is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name with a five-field cron spec or a descriptor such as "@hourly".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.mu.Lock()
	if _, dup := s.jobs[name]; dup {
		s.mu.Unlock()
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = job
	s.mu.Unlock()

	_, err := s.cron.AddFunc(spec, func() {
		if err := s.Run(s.ctx, name); err != nil {
			s.logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()
		return err
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Run executes a registered job immediately.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	start := time.Now()
	err := job(ctx)
	s.logger.Debug("job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)), zap.Error(err))
	return err
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the schedule, cancels running jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron's logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
