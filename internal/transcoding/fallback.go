package transcoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// findFallbackProfile walks the ladder below the current profile's tier and
// returns the first tier with an enabled profile, or nil when none exists.
func (s *Supervisor) findFallbackProfile(ctx context.Context, current *models.TranscodingProfile) (*models.TranscodingProfile, error) {
	tier := current.Tier
	for {
		next, ok := tier.NextLower()
		if !ok {
			return nil, nil
		}
		candidates, err := s.stores.Profiles.GetEnabledByTier(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("listing tier %s profiles: %w", next, err)
		}
		if len(candidates) > 0 {
			return selectByCodec(candidates, current.VideoCodec), nil
		}
		tier = next
	}
}

// selectByCodec prefers a candidate with the same video codec so the decoder
// chain stays warm across the switch, else the first by name.
func selectByCodec(candidates []*models.TranscodingProfile, codec models.VideoCodec) *models.TranscodingProfile {
	for _, c := range candidates {
		if c.VideoCodec == codec {
			return c
		}
	}
	return candidates[0]
}

// fallBack tears the session down, reassigns the channel one tier lower and
// restarts it. With nowhere lower to go the channel is treated exactly like a
// dead source detected at the bottom of the ladder.
func (s *Supervisor) fallBack(sess *session) {
	ctx := context.Background()

	current, err := s.stores.Profiles.GetByID(ctx, sess.ProfileID)
	if err != nil {
		// Transient lookup failure: re-arm so the next error retries.
		s.logger.Error("loading profile for fallback", slog.Any("error", err))
		sess.falling.Store(false)
		return
	}
	if current == nil {
		// Profile deleted mid-flight; the session still knows its tier.
		current = &models.TranscodingProfile{Tier: sess.Tier}
	}

	fb, err := s.findFallbackProfile(ctx, current)
	if err != nil {
		s.logger.Error("finding fallback profile", slog.Any("error", err))
		sess.falling.Store(false)
		return
	}
	if fb == nil {
		sess.dead.Store(true)
		s.declareDeadSource(sess, "no enabled fallback profile below tier "+string(current.Tier))
		return
	}

	s.logger.Warn("error threshold reached, falling back",
		slog.String("channel", sess.ChannelName),
		slog.String("from", sess.ProfileName),
		slog.String("to", fb.Name),
		slog.String("tier", string(fb.Tier)),
		slog.Int64("errors", sess.errorCount.Load()))

	sess.stopping.Store(true)
	if err := sess.cmd.Stop(stopGrace); err != nil {
		s.logger.Warn("stopping encoder for fallback", slog.Any("error", err))
	}
	<-sess.loopDone

	unlock := s.registry.LockChannel(sess.ChannelID)
	if !s.registry.Remove(sess.ChannelID, sess.Token) {
		// A concurrent stop claimed the teardown and owns what happens next.
		unlock()
		return
	}
	reason := "error threshold reached, falling back to " + fb.Name
	s.closeJob(ctx, sess, func(j *models.TranscodingJob) { j.MarkFailed(sess.cmd.ExitCode(), reason) })

	// The reassignment is sticky so the channel keeps its ladder position
	// across restarts until an operator moves it back up.
	if err := s.stores.Channels.SetProfile(ctx, sess.ChannelID, &fb.ID); err != nil {
		s.logger.Error("assigning fallback profile", slog.Any("error", err))
	}
	s.audit(ctx, models.ActorSystem, models.ActionFallback, sess.ChannelID,
		fmt.Sprintf("%s -> %s after %d errors", sess.ProfileName, fb.Name, sess.errorCount.Load()))
	unlock()

	select {
	case <-time.After(s.cfg.RestartDelay):
	case <-s.baseCtx.Done():
		return
	}

	err = s.start(ctx, sess.ChannelID, StartOptions{ProfileID: &fb.ID, IsRetry: true}, models.ActorSystem)
	if err == nil || errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrShuttingDown) {
		return
	}
	s.logger.Error("restarting after fallback",
		slog.String("channel", sess.ChannelName), slog.Any("error", err))
	if uerr := s.stores.Channels.UpdateTranscodingState(ctx, sess.ChannelID, models.TranscodingStatusFailed, "", "fallback restart failed: "+err.Error()); uerr != nil {
		s.logger.Error("updating channel after failed fallback restart", slog.Any("error", uerr))
	}
}
