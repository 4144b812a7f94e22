// Package scheduler runs the engine's periodic maintenance jobs on cron
// schedules: the cleanup sweep over the output tree and the retention
// pruning of history tables. Long-lived monitoring loops (resource, health,
// watchdog) own their own tickers; the scheduler only covers work that is
// naturally expressed as "every N, do one pass".
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one maintenance pass. The context is the scheduler's run context;
// jobs should return promptly once it is canceled.
type Job func(ctx context.Context)

// Scheduler wraps a cron runner with named jobs, overlap suppression and
// panic recovery. A job still running when its next tick fires is skipped,
// not queued: maintenance passes are idempotent and the next tick covers
// whatever the skipped one would have done.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	names   map[string]cron.EntryID
	started bool
}

// New creates a scheduler. Jobs are registered with Every or Cron and run
// only after Start.
func New(logger *slog.Logger) *Scheduler {
	logger = logger.With(slog.String("component", "scheduler"))
	cl := &cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		names:  make(map[string]cron.EntryID),
	}
}

// Every registers a job that runs on a fixed interval. Intervals are rounded
// down to whole seconds by the cron runner; anything below a second is
// rejected.
func (s *Scheduler) Every(interval time.Duration, name string, job Job) error {
	if interval < time.Second {
		return fmt.Errorf("job %q: interval %s is below one second", name, interval)
	}
	return s.Cron(fmt.Sprintf("@every %s", interval), name, job)
}

// Cron registers a job with a cron expression (standard five-field specs and
// @every/@hourly descriptors).
func (s *Scheduler) Cron(spec, name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		start := time.Now()
		job(s.ctx)
		s.logger.Debug("maintenance job finished",
			slog.String("job", name),
			slog.Duration("elapsed", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("registering job %q: %w", name, err)
	}
	s.names[name] = id

	s.logger.Info("maintenance job registered",
		slog.String("job", name),
		slog.String("schedule", spec))
	return nil
}

// Start begins running registered jobs. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.names)))
}

// Stop cancels the job context and waits for in-flight jobs to return, up to
// the deadline of the given context.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out waiting for jobs")
	}
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	return names
}

// cronLogger adapts slog to the cron runner's logger interface. Routine
// scheduling chatter lands at debug; only errors surface at error level.
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, slog.Any("details", keysAndValues))
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, slog.Any("error", err), slog.Any("details", keysAndValues))
}
