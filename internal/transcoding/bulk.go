package transcoding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// BulkResult is the per-channel outcome of a bulk operation.
type BulkResult struct {
	ChannelID models.ULID `json:"channel_id"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
}

// BulkStart starts the listed channels in fixed-size groups: a stagger delay
// between successive starts spreads source connections out, a longer cooldown
// between groups lets the encoder fleet settle. A zero stagger uses the
// configured default. Already collected results are returned alongside the
// context error when the caller gives up mid-run.
func (s *Supervisor) BulkStart(ctx context.Context, ids []models.ULID, stagger time.Duration) ([]BulkResult, error) {
	if stagger <= 0 {
		stagger = s.cfg.StaggerDelay
	}
	s.audit(ctx, models.ActorAPI, models.ActionBulkStart, models.ULID{},
		fmt.Sprintf("%d channels, stagger %s", len(ids), stagger))
	s.logger.Info("bulk start", slog.Int("channels", len(ids)), slog.Duration("stagger", stagger))

	results := make([]BulkResult, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			delay := stagger
			if s.cfg.BulkGroupSize > 0 && i%s.cfg.BulkGroupSize == 0 {
				delay = s.cfg.BulkGroupCooldown
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}
		err := s.start(ctx, id, StartOptions{}, models.ActorAPI)
		results = append(results, toBulkResult(id, err))
	}
	return results, nil
}

// BulkStop stops the listed channels sequentially. Stops are cheap and do not
// touch upstream sources, so no stagger is applied.
func (s *Supervisor) BulkStop(ctx context.Context, ids []models.ULID) ([]BulkResult, error) {
	s.audit(ctx, models.ActorAPI, models.ActionBulkStop, models.ULID{}, fmt.Sprintf("%d channels", len(ids)))
	s.logger.Info("bulk stop", slog.Int("channels", len(ids)))

	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		err := s.stop(ctx, id, models.ActorAPI)
		results = append(results, toBulkResult(id, err))
	}
	return results, nil
}

// EmergencyStopAll stops every live encoder in parallel and returns how many
// sessions were torn down.
func (s *Supervisor) EmergencyStopAll(ctx context.Context) int {
	infos := s.registry.Snapshot()
	s.audit(ctx, models.ActorAPI, models.ActionEmergencyStop, models.ULID{},
		fmt.Sprintf("%d live sessions", len(infos)))
	s.logger.Warn("emergency stop", slog.Int("sessions", len(infos)))

	var wg sync.WaitGroup
	for _, info := range infos {
		wg.Add(1)
		go func(id models.ULID) {
			defer wg.Done()
			if err := s.stop(ctx, id, models.ActorAPI); err != nil {
				s.logger.Error("emergency stopping channel",
					slog.String("channel_id", id.String()), slog.Any("error", err))
			}
		}(info.ChannelID)
	}
	wg.Wait()
	return len(infos)
}

// MigrateToProfile makes the profile the new default and moves every live
// channel onto it with a stop and start per channel, spaced by the migration
// stagger. The per-channel assignment is updated so the move survives
// restarts.
func (s *Supervisor) MigrateToProfile(ctx context.Context, profileID models.ULID) ([]BulkResult, error) {
	profile, err := s.stores.Profiles.GetByID(ctx, profileID)
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
	if err := s.stores.Profiles.SetDefault(ctx, profileID); err != nil {
		return nil, fmt.Errorf("setting default profile: %w", err)
	}

	infos := s.registry.Snapshot()
	s.audit(ctx, models.ActorAPI, models.ActionMigration, models.ULID{},
		fmt.Sprintf("profile %s, %d live channels", profile.Name, len(infos)))
	s.logger.Info("migrating live channels",
		slog.String("profile", profile.Name), slog.Int("channels", len(infos)))

	results := make([]BulkResult, 0, len(infos))
	for i, info := range infos {
		if i > 0 {
			select {
			case <-time.After(s.cfg.MigrationStagger):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}
		if info.ProfileID == profileID {
			results = append(results, BulkResult{ChannelID: info.ChannelID, OK: true})
			continue
		}
		err := s.migrateChannel(ctx, info.ChannelID, profileID)
		results = append(results, toBulkResult(info.ChannelID, err))
	}
	return results, nil
}

func (s *Supervisor) migrateChannel(ctx context.Context, channelID, profileID models.ULID) error {
	if err := s.stop(ctx, channelID, models.ActorAPI); err != nil {
		return fmt.Errorf("stopping: %w", err)
	}
	if err := s.stores.Channels.SetProfile(ctx, channelID, &profileID); err != nil {
		return fmt.Errorf("assigning profile: %w", err)
	}
	if err := s.start(ctx, channelID, StartOptions{ProfileID: &profileID}, models.ActorAPI); err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	return nil
}

func toBulkResult(id models.ULID, err error) BulkResult {
	r := BulkResult{ChannelID: id, OK: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
