package transcoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// Watchdog reconciles desired state with the registry: enabled channels whose
// status says they should be live but which have no session are restarted,
// with per-channel exponential backoff so a hopeless channel does not get
// hammered every tick.
type Watchdog struct {
	sup    *Supervisor
	logger *slog.Logger

	mu      sync.Mutex
	backoff map[models.ULID]*retryState
}

type retryState struct {
	failures  int
	notBefore time.Time
}

// NewWatchdog creates a watchdog over the supervisor.
func NewWatchdog(sup *Supervisor, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		sup:     sup,
		logger:  logger.With(slog.String("component", "watchdog")),
		backoff: make(map[models.ULID]*retryState),
	}
}

// Run reconciles on every tick until the context is canceled.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info("watchdog running", slog.Duration("interval", w.sup.cfg.WatchdogInterval))
	ticker := time.NewTicker(w.sup.cfg.WatchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Reconcile(ctx)
		}
	}
}

// Reconcile runs one reconciliation pass. Channels in the offline statuses
// belong to the dead-source machinery and are left alone.
func (w *Watchdog) Reconcile(ctx context.Context) {
	channels, err := w.sup.stores.Channels.GetTranscodingEnabled(ctx)
	if err != nil {
		w.logger.Error("listing channels", slog.Any("error", err))
		return
	}

	now := time.Now()
	for _, ch := range channels {
		switch ch.TranscodingStatus {
		case models.TranscodingStatusActive, models.TranscodingStatusStarting, models.TranscodingStatusFailed:
		default:
			w.clear(ch.ID)
			continue
		}
		if w.sup.HasSession(ch.ID) {
			w.clear(ch.ID)
			continue
		}
		if !w.due(ch.ID, now) {
			continue
		}

		err := w.sup.start(ctx, ch.ID, StartOptions{IsRetry: true}, models.ActorSystem)
		switch {
		case err == nil:
			w.clear(ch.ID)
			w.sup.audit(ctx, models.ActorSystem, models.ActionWatchdogRestart, ch.ID,
				fmt.Sprintf("status %s with no live session", ch.TranscodingStatus))
			w.logger.Info("watchdog restarted channel",
				slog.String("channel", ch.Name),
				slog.String("channel_id", ch.ID.String()),
				slog.String("status", string(ch.TranscodingStatus)))
		case errors.Is(err, ErrAlreadyRunning):
			w.clear(ch.ID)
		case errors.Is(err, ErrShuttingDown):
			return
		default:
			delay := w.bump(ch.ID, now)
			w.logger.Warn("watchdog restart failed",
				slog.String("channel", ch.Name),
				slog.String("channel_id", ch.ID.String()),
				slog.Duration("next_try_in", delay),
				slog.Any("error", err))
		}
	}
}

// RecoverStale normalizes rows left behind by an unclean shutdown: active
// job rows with no live process are failed, and channel statuses are reset
// so the first reconcile pass relaunches what should be running.
func (w *Watchdog) RecoverStale(ctx context.Context) error {
	jobs, err := w.sup.stores.Jobs.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active jobs: %w", err)
	}
	stale := 0
	for _, job := range jobs {
		if w.sup.HasSession(job.ChannelID) {
			continue
		}
		job.MarkFailed(-1, "stale job found at startup")
		if err := w.sup.stores.Jobs.Update(ctx, job); err != nil {
			w.logger.Error("closing stale job",
				slog.String("job_id", job.ID.String()), slog.Any("error", err))
			continue
		}
		stale++
	}

	transient := []models.TranscodingStatus{
		models.TranscodingStatusStarting,
		models.TranscodingStatusActive,
		models.TranscodingStatusStopping,
	}
	for _, status := range transient {
		channels, err := w.sup.stores.Channels.GetByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("listing %s channels: %w", status, err)
		}
		for _, ch := range channels {
			if w.sup.HasSession(ch.ID) {
				continue
			}
			target := models.TranscodingStatusFailed
			reason := "stale state found at startup"
			if status == models.TranscodingStatusStopping {
				// An interrupted stop still means stopped.
				target = models.TranscodingStatusInactive
				reason = ""
			}
			if err := w.sup.stores.Channels.UpdateTranscodingState(ctx, ch.ID, target, "", reason); err != nil {
				w.logger.Error("normalizing stale channel",
					slog.String("channel_id", ch.ID.String()), slog.Any("error", err))
				continue
			}
			w.sup.audit(ctx, models.ActorSystem, models.ActionStaleRecovery, ch.ID,
				fmt.Sprintf("%s -> %s", status, target))
			stale++
		}
	}

	if stale > 0 {
		w.logger.Info("stale state normalized", slog.Int("rows", stale))
	}
	return nil
}

func (w *Watchdog) due(id models.ULID, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.backoff[id]
	return !ok || !now.Before(st.notBefore)
}

func (w *Watchdog) bump(id models.ULID, now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.backoff[id]
	if st == nil {
		st = &retryState{}
		w.backoff[id] = st
	}
	st.failures++

	delay := w.sup.cfg.WatchdogInterval
	for i := 1; i < st.failures && delay < w.sup.cfg.WatchdogMaxDelay; i++ {
		delay *= 2
	}
	if delay > w.sup.cfg.WatchdogMaxDelay {
		delay = w.sup.cfg.WatchdogMaxDelay
	}
	st.notBefore = now.Add(delay)
	return delay
}

func (w *Watchdog) clear(id models.ULID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.backoff, id)
}
