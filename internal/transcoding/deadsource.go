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

// errorWindow counts dead-source-pattern errors over a rolling window. The
// window only ever holds observations for the current process; a replacement
// session gets a fresh one.
type errorWindow struct {
	mu     sync.Mutex
	window time.Duration
	times  []time.Time
}

func newErrorWindow(window time.Duration) *errorWindow {
	return &errorWindow{window: window}
}

// Add records an observation and returns how many fall within the window
// ending at now.
func (w *errorWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.times = append(w.times, now)
	w.pruneLocked(now)
	return len(w.times)
}

// Count returns the observations within the window ending at now.
func (w *errorWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	return len(w.times)
}

// Reset discards all observations.
func (w *errorWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.times = w.times[:0]
}

func (w *errorWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	keep := w.times[:0]
	for _, t := range w.times {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	w.times = keep
}

// quarantineOutcome decides, from the channel's detection count after the
// current detection was added, whether the quarantine is temporary (a
// recovery attempt will be scheduled) or permanent (manual retry only).
// Detection n happens after n-1 automatic recoveries, so the count exceeding
// maxRetries means every allowed recovery has already been spent.
func quarantineOutcome(detections, maxRetries int) models.TranscodingStatus {
	if detections > maxRetries {
		return models.TranscodingStatusOfflinePermanent
	}
	return models.TranscodingStatusOfflineTemporary
}

// declareDeadSource kills the session's encoder and quarantines the channel.
// Within the retry budget the quarantine is temporary with a recovery attempt
// scheduled after the cooldown; past it the channel goes permanently offline.
func (s *Supervisor) declareDeadSource(sess *session, pattern string) {
	ctx := context.Background()

	// The source is gone, nothing to flush: kill instead of a graceful stop.
	sess.stopping.Store(true)
	if err := sess.cmd.Kill(); err != nil {
		s.logger.Warn("killing encoder", slog.String("channel", sess.ChannelName), slog.Any("error", err))
	}
	<-sess.loopDone

	unlock := s.registry.LockChannel(sess.ChannelID)
	defer unlock()
	if !s.registry.Remove(sess.ChannelID, sess.Token) {
		// A concurrent stop claimed the teardown and owns what happens next.
		return
	}

	s.closeJob(ctx, sess, func(j *models.TranscodingJob) {
		j.MarkFailed(sess.cmd.ExitCode(), "dead source: "+pattern)
	})
	s.removeOutputDir(sess.OutputDir)

	ch, err := s.stores.Channels.GetByID(ctx, sess.ChannelID)
	if err != nil || ch == nil {
		s.logger.Error("loading channel for quarantine",
			slog.String("channel_id", sess.ChannelID.String()), slog.Any("error", err))
		return
	}

	detections := ch.DeadSourceCount + 1
	now := models.Now()
	if err := s.stores.Channels.IncrementDeadSourceCount(ctx, sess.ChannelID, now); err != nil {
		s.logger.Error("incrementing dead source counter", slog.Any("error", err))
	}

	if quarantineOutcome(detections, s.cfg.DeadSource.MaxRetries) == models.TranscodingStatusOfflinePermanent {
		reason := fmt.Sprintf("dead source, retry budget exhausted after %d detections: %s", detections, pattern)
		if err := s.stores.Channels.UpdateTranscodingState(ctx, sess.ChannelID, models.TranscodingStatusOfflinePermanent, "", reason); err != nil {
			s.logger.Error("quarantining channel", slog.Any("error", err))
		}
		s.audit(ctx, models.ActorSystem, models.ActionOfflinePermanent, sess.ChannelID, reason)
		s.logger.Error("channel permanently offline",
			slog.String("channel", sess.ChannelName),
			slog.String("channel_id", sess.ChannelID.String()),
			slog.Int("detections", detections))
		return
	}

	ev := &models.DeadSourceEvent{
		ChannelID:     sess.ChannelID,
		ErrorPattern:  pattern,
		ProfileTier:   sess.Tier,
		CooldownUntil: now.Add(s.cfg.DeadSource.Cooldown),
		RetryCount:    detections - 1,
	}
	if err := s.stores.DeadSources.Create(ctx, ev); err != nil {
		s.logger.Error("recording dead source event", slog.Any("error", err))
	}
	if err := s.stores.Channels.UpdateTranscodingState(ctx, sess.ChannelID, models.TranscodingStatusOfflineTemporary, "", "dead source: "+pattern); err != nil {
		s.logger.Error("updating channel status", slog.Any("error", err))
	}
	s.audit(ctx, models.ActorSystem, models.ActionDeadSource, sess.ChannelID,
		fmt.Sprintf("detection %d, recovery in %s: %s", detections, s.cfg.DeadSource.Cooldown, pattern))
	s.logger.Warn("dead source detected",
		slog.String("channel", sess.ChannelName),
		slog.String("channel_id", sess.ChannelID.String()),
		slog.Int("detection", detections),
		slog.String("pattern", pattern))

	s.scheduleRecovery(sess.ChannelID, s.cfg.DeadSource.Cooldown)
}

// scheduleRecovery arms (or re-arms) the channel's recovery timer.
func (s *Supervisor) scheduleRecovery(channelID models.ULID, delay time.Duration) {
	if s.closed.Load() {
		return
	}
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.recoveryTimers[channelID]; ok {
		t.Stop()
	}
	s.recoveryTimers[channelID] = time.AfterFunc(delay, func() {
		s.timerMu.Lock()
		delete(s.recoveryTimers, channelID)
		s.timerMu.Unlock()
		s.recoverDeadSource(channelID)
	})
}

func (s *Supervisor) cancelRecovery(channelID models.ULID) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.recoveryTimers[channelID]; ok {
		t.Stop()
		delete(s.recoveryTimers, channelID)
	}
}

// recoverDeadSource fires when a quarantine cooldown elapses. The start path
// re-checks everything under the channel lock, so a timer that lost a race
// against a manual stop or shutdown aborts harmlessly inside start.
func (s *Supervisor) recoverDeadSource(channelID models.ULID) {
	ctx := context.Background()
	s.audit(ctx, models.ActorSystem, models.ActionRecoveryAttempt, channelID, "cooldown elapsed")
	s.logger.Info("attempting dead source recovery", slog.String("channel_id", channelID.String()))

	err := s.start(ctx, channelID, StartOptions{IsRetry: true}, models.ActorSystem)
	switch {
	case err == nil:
	case errIsRetryableStart(err):
		// Capacity pressure is not the source's fault; try again after
		// another cooldown without burning the retry budget.
		s.logger.Warn("recovery deferred, tier at capacity",
			slog.String("channel_id", channelID.String()))
		s.scheduleRecovery(channelID, s.cfg.DeadSource.Cooldown)
	case errors.Is(err, ErrShuttingDown), errors.Is(err, ErrAlreadyRunning):
	default:
		s.logger.Error("dead source recovery failed",
			slog.String("channel_id", channelID.String()), slog.Any("error", err))
	}
}
