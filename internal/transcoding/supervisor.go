// Package transcoding implements the orchestration core: the encoder process
// supervisor and its session registry, tier-based admission, the quality
// fallback and dead-source state machine, bulk operations and the
// reconciling watchdog.
//
// The supervisor owns every encoder process it spawns. Each live process is
// tracked as a registry session with a single event loop consuming classified
// stderr lines and the exit notification; every state transition it makes is
// persisted together with an action log entry.
package transcoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

const (
	// stopGrace is how long a SIGTERM'd encoder gets before SIGKILL.
	stopGrace = 5 * time.Second
	// eventBuffer sizes a session's event channel. Matched errors are sent
	// blocking so none are lost; plain output is dropped when full.
	eventBuffer = 256
)

// Stores bundles the persistence interfaces the supervisor and its satellites
// write through.
type Stores struct {
	Channels    repository.ChannelRepository
	Profiles    repository.ProfileRepository
	Jobs        repository.JobRepository
	DeadSources repository.DeadSourceRepository
	Actions     repository.ActionLogRepository
}

// StartOptions control a single start attempt.
type StartOptions struct {
	// ProfileID overrides the channel's assigned profile for this start.
	ProfileID *models.ULID
	// IsRetry marks starts issued by the fallback, recovery and watchdog
	// paths; retry invocations carry reconnect robustness flags.
	IsRetry bool
	// BypassAdmission skips the tier capacity check. The
	// one-session-per-channel invariant still holds.
	BypassAdmission bool
}

// Supervisor runs and tracks encoder processes for channels.
type Supervisor struct {
	cfg     config.TranscodingConfig
	storage config.StorageConfig
	logger  *slog.Logger

	registry  *Registry
	admission *Admission
	stores    Stores

	ffmpegPath string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool

	timerMu        sync.Mutex
	recoveryTimers map[models.ULID]*time.Timer
}

// NewSupervisor creates a supervisor. The ffmpeg binary is located up front
// so a missing binary fails startup instead of the first start request.
func NewSupervisor(cfg config.TranscodingConfig, storage config.StorageConfig, stores Stores, logger *slog.Logger) (*Supervisor, error) {
	ffmpegPath, err := ffmpeg.Locate("ffmpeg", cfg.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("locating ffmpeg: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()

	return &Supervisor{
		cfg:            cfg,
		storage:        storage,
		logger:         logger.With(slog.String("component", "supervisor")),
		registry:       registry,
		admission:      NewAdmission(cfg.Limits, registry),
		stores:         stores,
		ffmpegPath:     ffmpegPath,
		baseCtx:        ctx,
		cancel:         cancel,
		recoveryTimers: make(map[models.ULID]*time.Timer),
	}, nil
}

// Sessions returns a snapshot of all live sessions.
func (s *Supervisor) Sessions() []SessionInfo {
	return s.registry.Snapshot()
}

// HasSession reports whether the channel has a live session.
func (s *Supervisor) HasSession(channelID models.ULID) bool {
	return s.registry.Has(channelID)
}

// Occupancy returns live/max session counts per tier.
func (s *Supervisor) Occupancy() []TierOccupancy {
	return s.admission.Occupancy()
}

// Check returns the advisory admission verdict for one more job at the tier.
func (s *Supervisor) Check(tier models.ProfileTier) Decision {
	return s.admission.Check(tier)
}

// Start launches an encoder for the channel on behalf of an API caller.
func (s *Supervisor) Start(ctx context.Context, channelID models.ULID, opts StartOptions) error {
	return s.start(ctx, channelID, opts, models.ActorAPI)
}

func (s *Supervisor) start(ctx context.Context, channelID models.ULID, opts StartOptions, actor models.ActionActor) error {
	if s.closed.Load() {
		return ErrShuttingDown
	}

	unlock := s.registry.LockChannel(channelID)
	defer unlock()

	ch, err := s.stores.Channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrChannelNotFound
	}
	if !ch.IsTranscodingEnabled() {
		return ErrTranscodingDisabled
	}
	if s.registry.Has(channelID) {
		return ErrAlreadyRunning
	}
	if ch.TranscodingStatus == models.TranscodingStatusOfflinePermanent {
		return ErrOfflinePermanent
	}
	// An automatic retry that lost the race against a manual stop aborts
	// quietly; the operator's stop wins.
	if opts.IsRetry && actor == models.ActorSystem && ch.TranscodingStatus == models.TranscodingStatusInactive {
		s.logger.Debug("retry start aborted, channel was stopped",
			slog.String("channel_id", channelID.String()))
		return nil
	}

	// A manual start during the quarantine cooldown replaces the scheduled
	// recovery attempt.
	s.cancelRecovery(channelID)

	profile, err := s.resolveProfile(ctx, ch, opts.ProfileID)
	if err != nil {
		return err
	}

	// Advisory check before building anything. The answer can go stale, so
	// Admit re-validates under the registry lock right before the session
	// slot is taken.
	if !opts.BypassAdmission {
		if d := s.admission.Check(profile.Tier); !d.Allowed {
			return &ResourceExhaustedError{Tier: d.Tier, Current: d.Current, Max: d.Max}
		}
	}

	outputDir := s.storage.ChannelDir(channelID.String())
	sess := &session{
		Token:       uuid.New(),
		ChannelID:   channelID,
		ChannelName: ch.Name,
		SourceURL:   ch.SourceURL,
		ProfileID:   profile.ID,
		ProfileName: profile.Name,
		Tier:        profile.Tier,
		OutputDir:   outputDir,
		IsRetry:     opts.IsRetry,
		StartedAt:   time.Now(),
		events:      make(chan Event, eventBuffer),
		loopDone:    make(chan struct{}),
		window:      newErrorWindow(s.cfg.DeadSource.Window),
	}
	if err := s.registry.Admit(sess, LimitFor(s.cfg.Limits, profile.Tier), opts.BypassAdmission); err != nil {
		return err
	}

	// The slot is reserved; every failure from here must release it.
	if err := s.prepareOutputDir(outputDir); err != nil {
		s.registry.Remove(channelID, sess.Token)
		return err
	}

	now := models.Now()
	job := &models.TranscodingJob{
		ChannelID:    channelID,
		ProfileID:    profile.ID,
		OutputDir:    outputDir,
		PlaylistPath: outputDir + "/" + PlaylistName,
		Status:       models.JobStatusStarting,
		IsRetry:      opts.IsRetry,
		StartedAt:    &now,
	}
	if err := s.stores.Jobs.Create(ctx, job); err != nil {
		s.registry.Remove(channelID, sess.Token)
		return fmt.Errorf("creating job: %w", err)
	}
	sess.JobID = job.ID

	if err := s.stores.Channels.UpdateTranscodingState(ctx, channelID, models.TranscodingStatusStarting, "", ""); err != nil {
		s.registry.Remove(channelID, sess.Token)
		return fmt.Errorf("updating channel status: %w", err)
	}

	cmd := buildEncoderCommand(s.ffmpegPath, ch, profile, outputDir, opts.IsRetry)
	cmd.OnStderrLine(func(line string) {
		if cat, ok := ClassifyLine(line); ok {
			sess.events <- Event{Kind: EventErrorMatched, Line: line, Category: cat}
			return
		}
		select {
		case sess.events <- Event{Kind: EventOutput, Line: line}:
		default:
		}
	})
	sess.cmd = cmd

	// The process lives on the supervisor's context, not the request's: the
	// caller returns as soon as the transition is recorded.
	if err := cmd.Start(s.baseCtx); err != nil {
		s.registry.Remove(channelID, sess.Token)
		job.MarkFailed(-1, err.Error())
		if uerr := s.stores.Jobs.Update(ctx, job); uerr != nil {
			s.logger.Error("closing job after spawn failure", slog.Any("error", uerr))
		}
		if uerr := s.stores.Channels.UpdateTranscodingState(ctx, channelID, models.TranscodingStatusFailed, "", err.Error()); uerr != nil {
			s.logger.Error("updating channel after spawn failure", slog.Any("error", uerr))
		}
		s.audit(ctx, models.ActorSystem, models.ActionJobFail, channelID, "spawn failure: "+err.Error())
		return fmt.Errorf("spawning encoder: %w", err)
	}

	job.PID = cmd.PID()
	if err := s.stores.Jobs.Update(ctx, job); err != nil {
		s.logger.Error("recording encoder pid", slog.Any("error", err))
	}

	detail := fmt.Sprintf("profile %s (tier %s)", profile.Name, profile.Tier)
	if opts.IsRetry {
		detail += ", retry"
	}
	s.audit(ctx, actor, models.ActionJobStart, channelID, detail)
	s.logger.Info("encoder started",
		slog.String("channel", ch.Name),
		slog.String("channel_id", channelID.String()),
		slog.String("profile", profile.Name),
		slog.String("tier", string(profile.Tier)),
		slog.Int("pid", cmd.PID()),
		slog.Bool("retry", opts.IsRetry))

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		<-cmd.Done()
		sess.events <- Event{Kind: EventExited, ExitCode: cmd.ExitCode(), Err: cmd.ExitErr()}
		close(sess.events)
	}()
	go func() {
		defer s.wg.Done()
		s.runEventLoop(sess)
	}()
	go func() {
		defer s.wg.Done()
		s.confirmLater(sess)
	}()

	return nil
}

// resolveProfile picks the profile for a start: the explicit override, the
// channel's assignment, else the default.
func (s *Supervisor) resolveProfile(ctx context.Context, ch *models.Channel, override *models.ULID) (*models.TranscodingProfile, error) {
	var (
		profile *models.TranscodingProfile
		err     error
	)
	switch {
	case override != nil:
		profile, err = s.stores.Profiles.GetByID(ctx, *override)
	case ch.ProfileID != nil:
		profile, err = s.stores.Profiles.GetByID(ctx, *ch.ProfileID)
	default:
		profile, err = s.stores.Profiles.GetDefault(ctx)
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	if !profile.IsEnabled() {
		return nil, ErrProfileDisabled
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return profile, nil
}

// Stop terminates the channel's encoder on behalf of an API caller. It is
// idempotent: with no live session it still normalizes status and cleans the
// output directory.
func (s *Supervisor) Stop(ctx context.Context, channelID models.ULID) error {
	return s.stop(ctx, channelID, models.ActorAPI)
}

func (s *Supervisor) stop(ctx context.Context, channelID models.ULID, actor models.ActionActor) error {
	unlock := s.registry.LockChannel(channelID)
	defer unlock()

	s.cancelRecovery(channelID)

	ch, err := s.stores.Channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrChannelNotFound
	}

	sess := s.registry.Get(channelID)
	if sess == nil {
		return s.normalizeStopped(ctx, ch, actor)
	}

	sess.stopping.Store(true)
	if err := s.stores.Channels.UpdateTranscodingState(ctx, channelID, models.TranscodingStatusStopping, "", ""); err != nil {
		s.logger.Error("updating channel status", slog.Any("error", err))
	}

	if err := sess.cmd.Stop(stopGrace); err != nil {
		s.logger.Warn("stopping encoder", slog.String("channel", sess.ChannelName), slog.Any("error", err))
	}
	<-sess.loopDone
	s.registry.Remove(channelID, sess.Token)

	s.closeJob(ctx, sess, func(j *models.TranscodingJob) { j.MarkStopped() })
	s.removeOutputDir(sess.OutputDir)

	if err := s.stores.Channels.UpdateTranscodingState(ctx, channelID, models.TranscodingStatusInactive, "", ""); err != nil {
		return fmt.Errorf("updating channel status: %w", err)
	}
	s.audit(ctx, actor, models.ActionJobStop, channelID, "profile "+sess.ProfileName)
	s.logger.Info("encoder stopped",
		slog.String("channel", sess.ChannelName),
		slog.String("channel_id", channelID.String()))
	return nil
}

// normalizeStopped is the no-session stop path: close stale job rows, clean
// the directory and settle the status. Permanent quarantine survives a stop;
// everything else rests at inactive.
func (s *Supervisor) normalizeStopped(ctx context.Context, ch *models.Channel, actor models.ActionActor) error {
	if job, err := s.stores.Jobs.GetActiveByChannel(ctx, ch.ID); err == nil && job != nil {
		job.MarkStopped()
		if uerr := s.stores.Jobs.Update(ctx, job); uerr != nil {
			s.logger.Error("closing stale job", slog.Any("error", uerr))
		}
	}
	s.removeOutputDir(s.storage.ChannelDir(ch.ID.String()))

	if ch.TranscodingStatus == models.TranscodingStatusInactive ||
		ch.TranscodingStatus == models.TranscodingStatusOfflinePermanent {
		return nil
	}
	if err := s.stores.Channels.UpdateTranscodingState(ctx, ch.ID, models.TranscodingStatusInactive, "", ""); err != nil {
		return fmt.Errorf("updating channel status: %w", err)
	}
	s.audit(ctx, actor, models.ActionJobStop, ch.ID, "no live session, status normalized")
	return nil
}

// Restart stops the channel, waits out the restart delay so the OS releases
// playlist and segment handles, then starts it again.
func (s *Supervisor) Restart(ctx context.Context, channelID models.ULID) error {
	if err := s.Stop(ctx, channelID); err != nil {
		return err
	}
	s.audit(ctx, models.ActorAPI, models.ActionJobRestart, channelID, "")

	select {
	case <-time.After(s.cfg.RestartDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Start(ctx, channelID, StartOptions{})
}

// ManualRetry clears quarantine state, including permanent offline, and
// starts the channel again. This is the only path out of offline_permanent.
func (s *Supervisor) ManualRetry(ctx context.Context, channelID models.ULID) error {
	unlock := s.registry.LockChannel(channelID)

	ch, err := s.stores.Channels.GetByID(ctx, channelID)
	if err != nil {
		unlock()
		return err
	}
	if ch == nil {
		unlock()
		return ErrChannelNotFound
	}
	if s.registry.Has(channelID) {
		unlock()
		return ErrAlreadyRunning
	}

	s.cancelRecovery(channelID)
	if err := s.stores.Channels.ResetDeadSource(ctx, channelID); err != nil {
		unlock()
		return fmt.Errorf("resetting dead source counter: %w", err)
	}
	if err := s.stores.DeadSources.ResolveByChannel(ctx, channelID); err != nil {
		unlock()
		return fmt.Errorf("resolving dead source events: %w", err)
	}
	if err := s.stores.Channels.UpdateTranscodingState(ctx, channelID, models.TranscodingStatusInactive, "", ""); err != nil {
		unlock()
		return fmt.Errorf("updating channel status: %w", err)
	}
	s.audit(ctx, models.ActorAPI, models.ActionManualRetry, channelID, "quarantine cleared")
	unlock()

	return s.start(ctx, channelID, StartOptions{IsRetry: true}, models.ActorAPI)
}

// MarkOffline force-stops the channel and pins it permanently offline until a
// manual retry.
func (s *Supervisor) MarkOffline(ctx context.Context, channelID models.ULID, reason string) error {
	if reason == "" {
		reason = "marked offline by operator"
	}
	if err := s.stop(ctx, channelID, models.ActorAPI); err != nil {
		return err
	}
	if err := s.stores.Channels.UpdateTranscodingState(ctx, channelID, models.TranscodingStatusOfflinePermanent, "", reason); err != nil {
		return fmt.Errorf("updating channel status: %w", err)
	}
	s.audit(ctx, models.ActorAPI, models.ActionOfflinePermanent, channelID, reason)
	return nil
}

// runEventLoop is the single consumer of a session's events. It exits when
// the event channel closes after the exit notification.
func (s *Supervisor) runEventLoop(sess *session) {
	defer close(sess.loopDone)
	for ev := range sess.events {
		switch ev.Kind {
		case EventOutput:
			s.logger.Debug("encoder output",
				slog.String("channel", sess.ChannelName),
				slog.String("line", ev.Line))
		case EventErrorMatched:
			s.handleErrorMatched(sess, ev)
		case EventExited:
			s.handleExit(sess, ev)
		}
	}
}

// handleErrorMatched counts a classified stderr error and escalates: at the
// bottom of the ladder repeated dead-source signatures inside the rolling
// window quarantine the channel; above it, crossing the lifetime threshold
// falls back one tier. Escalations run outside the loop so it keeps draining.
func (s *Supervisor) handleErrorMatched(sess *session, ev Event) {
	count := sess.errorCount.Add(1)
	s.logger.Warn("encoder error",
		slog.String("channel", sess.ChannelName),
		slog.String("category", string(ev.Category)),
		slog.Int64("count", count),
		slog.String("line", ev.Line))

	if sess.Tier == models.TierCopy {
		if !ev.Category.IndicatesDeadSource() {
			return
		}
		if sess.window.Add(time.Now()) >= s.cfg.DeadSource.Threshold && sess.dead.CompareAndSwap(false, true) {
			pattern := fmt.Sprintf("%s: %s", ev.Category, ev.Line)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.declareDeadSource(sess, pattern)
			}()
		}
		return
	}

	if int(count) >= s.cfg.ErrorThreshold && sess.falling.CompareAndSwap(false, true) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fallBack(sess)
		}()
	}
}

// handleExit settles job and channel state after the process died on its own.
// Teardowns initiated elsewhere (stop, fallback, dead source) have marked the
// session stopping and own their transitions.
func (s *Supervisor) handleExit(sess *session, ev Event) {
	if sess.stopping.Load() {
		return
	}
	ctx := context.Background()
	s.registry.Remove(sess.ChannelID, sess.Token)

	if ev.Err == nil {
		// A live channel's encoder has no business exiting cleanly. The job
		// record stays truthful but the channel is failed so the watchdog
		// brings it back.
		s.closeJob(ctx, sess, func(j *models.TranscodingJob) { j.MarkCompleted() })
		if err := s.stores.Channels.UpdateTranscodingState(ctx, sess.ChannelID, models.TranscodingStatusFailed, "", "encoder exited"); err != nil {
			s.logger.Error("updating channel after clean exit", slog.Any("error", err))
		}
		s.audit(ctx, models.ActorSystem, models.ActionJobComplete, sess.ChannelID, "encoder exited cleanly")
		s.logger.Warn("encoder exited cleanly",
			slog.String("channel", sess.ChannelName),
			slog.String("channel_id", sess.ChannelID.String()))
		return
	}

	reason := sess.cmd.LastStderrLine()
	if reason == "" {
		reason = ev.Err.Error()
	}
	s.closeJob(ctx, sess, func(j *models.TranscodingJob) { j.MarkFailed(ev.ExitCode, reason) })
	if err := s.stores.Channels.UpdateTranscodingState(ctx, sess.ChannelID, models.TranscodingStatusFailed, "", reason); err != nil {
		s.logger.Error("updating channel after exit", slog.Any("error", err))
	}
	s.audit(ctx, models.ActorSystem, models.ActionJobFail, sess.ChannelID,
		fmt.Sprintf("exit code %d: %s", ev.ExitCode, reason))
	s.logger.Error("encoder failed",
		slog.String("channel", sess.ChannelName),
		slog.String("channel_id", sess.ChannelID.String()),
		slog.Int("exit_code", ev.ExitCode),
		slog.String("reason", reason))
}

// confirmLater promotes the session to active once it has survived the
// confirm delay. If the process died first the exit path has already settled
// the state and this is a no-op; a stop in between removed the session from
// the registry, which cancels the confirmation implicitly.
func (s *Supervisor) confirmLater(sess *session) {
	t := time.NewTimer(s.cfg.ConfirmDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.baseCtx.Done():
		return
	}

	cur := s.registry.Get(sess.ChannelID)
	if cur == nil || cur.Token != sess.Token || !sess.cmd.IsRunning() {
		return
	}

	ctx := context.Background()
	job, err := s.stores.Jobs.GetByID(ctx, sess.JobID)
	if err != nil || job == nil || job.Status != models.JobStatusStarting {
		return
	}
	job.MarkRunning()
	if err := s.stores.Jobs.Update(ctx, job); err != nil {
		s.logger.Error("promoting job", slog.Any("error", err))
		return
	}

	url := s.publicPlaylistURL(sess.ChannelID)
	if err := s.stores.Channels.UpdateTranscodingState(ctx, sess.ChannelID, models.TranscodingStatusActive, url, ""); err != nil {
		s.logger.Error("publishing channel", slog.Any("error", err))
		return
	}

	// A confirmed retry is a successful recovery: quarantine bookkeeping
	// resets so the next detection starts the retry budget over.
	if sess.IsRetry {
		if err := s.stores.Channels.ResetDeadSource(ctx, sess.ChannelID); err != nil {
			s.logger.Error("resetting dead source counter", slog.Any("error", err))
		}
		if err := s.stores.DeadSources.ResolveByChannel(ctx, sess.ChannelID); err != nil {
			s.logger.Error("resolving dead source events", slog.Any("error", err))
		}
	}

	s.audit(ctx, models.ActorSystem, models.ActionJobConfirm, sess.ChannelID, "confirmed after "+s.cfg.ConfirmDelay.String())
	s.logger.Info("encoder confirmed active",
		slog.String("channel", sess.ChannelName),
		slog.String("channel_id", sess.ChannelID.String()),
		slog.String("url", url))
}

// Shutdown gracefully stops every live encoder. Job rows are closed as
// stopped but channel statuses are left alone so the startup reconciliation
// relaunches the fleet on the next boot.
func (s *Supervisor) Shutdown(ctx context.Context) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("supervisor shutting down", slog.Int("sessions", s.registry.Len()))

	s.timerMu.Lock()
	for id, t := range s.recoveryTimers {
		t.Stop()
		delete(s.recoveryTimers, id)
	}
	s.timerMu.Unlock()

	var wg sync.WaitGroup
	for _, info := range s.registry.Snapshot() {
		sess := s.registry.Get(info.ChannelID)
		if sess == nil {
			continue
		}
		wg.Add(1)
		go func(sess *session) {
			defer wg.Done()
			sess.stopping.Store(true)
			if err := sess.cmd.Stop(stopGrace); err != nil {
				s.logger.Warn("stopping encoder at shutdown",
					slog.String("channel", sess.ChannelName), slog.Any("error", err))
			}
			<-sess.loopDone
			s.registry.Remove(sess.ChannelID, sess.Token)
			s.closeJob(context.Background(), sess, func(j *models.TranscodingJob) { j.MarkStopped() })
		}(sess)
	}
	wg.Wait()

	// Unblock confirmation waiters and any stragglers.
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown timed out waiting for workers")
	}
}

// closeJob loads the session's job row and applies the terminal transition,
// recording the lifetime error count. Already-terminal rows are left alone.
func (s *Supervisor) closeJob(ctx context.Context, sess *session, terminal func(*models.TranscodingJob)) {
	job, err := s.stores.Jobs.GetByID(ctx, sess.JobID)
	if err != nil {
		s.logger.Error("loading job", slog.Any("error", err))
		return
	}
	if job == nil || job.Status.IsTerminal() {
		return
	}
	terminal(job)
	job.ErrorCount = int(sess.errorCount.Load())
	if err := s.stores.Jobs.Update(ctx, job); err != nil {
		s.logger.Error("closing job", slog.Any("error", err))
	}
}

// audit appends one action log entry; failures are logged, never fatal.
func (s *Supervisor) audit(ctx context.Context, actor models.ActionActor, action string, channelID models.ULID, detail string) {
	entry := &models.ActionLog{Actor: actor, Action: action, ChannelID: channelID, Detail: detail}
	if err := s.stores.Actions.Create(ctx, entry); err != nil {
		s.logger.Error("writing action log", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Supervisor) prepareOutputDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}

func (s *Supervisor) removeOutputDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn("removing output directory", slog.String("dir", dir), slog.Any("error", err))
	}
}

// publicPlaylistURL is the path clients fetch the channel's live playlist
// from; the HTTP server serves the storage output root at /streams.
func (s *Supervisor) publicPlaylistURL(channelID models.ULID) string {
	return fmt.Sprintf("/streams/channel_%s/%s", channelID, PlaylistName)
}

// errIsRetryableStart reports whether a failed automatic start attempt is
// worth rescheduling (capacity pressure) as opposed to a terminal condition.
func errIsRetryableStart(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
