package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.TranscodingProfile{},
		&models.Channel{},
		&models.TranscodingJob{},
		&models.DeadSourceEvent{},
		&models.ActionLog{},
	))
	return db
}

func TestRetention_PrunesAgedHistory(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	channels := repository.NewChannelRepository(db)
	profiles := repository.NewProfileRepository(db)
	jobs := repository.NewJobRepository(db)
	deadSources := repository.NewDeadSourceRepository(db)
	actions := repository.NewActionLogRepository(db)

	profile := &models.TranscodingProfile{Name: "copy", VideoCodec: models.VideoCodecCopy, AudioCodec: models.AudioCodecCopy}
	require.NoError(t, profiles.Create(ctx, profile))
	ch := &models.Channel{Name: "news", SourceURL: "http://example.com/live.ts"}
	require.NoError(t, channels.Create(ctx, ch))

	old := time.Now().Add(-48 * time.Hour)

	// An aged terminal job and a fresh one.
	agedJob := &models.TranscodingJob{ChannelID: ch.ID, ProfileID: profile.ID, OutputDir: "/tmp/x", Status: models.JobStatusFailed}
	require.NoError(t, jobs.Create(ctx, agedJob))
	require.NoError(t, db.Model(agedJob).Update("created_at", old).Error)
	freshJob := &models.TranscodingJob{ChannelID: ch.ID, ProfileID: profile.ID, OutputDir: "/tmp/y", Status: models.JobStatusStopped}
	require.NoError(t, jobs.Create(ctx, freshJob))

	// An aged resolved event and an aged unresolved one; only the resolved
	// event is prunable.
	agedEvent := &models.DeadSourceEvent{ChannelID: ch.ID, ErrorPattern: "timeout", CooldownUntil: old, Resolved: true}
	require.NoError(t, deadSources.Create(ctx, agedEvent))
	require.NoError(t, db.Model(agedEvent).Update("created_at", old).Error)
	openEvent := &models.DeadSourceEvent{ChannelID: ch.ID, ErrorPattern: "timeout", CooldownUntil: old}
	require.NoError(t, deadSources.Create(ctx, openEvent))
	require.NoError(t, db.Model(openEvent).Update("created_at", old).Error)

	agedAction := &models.ActionLog{Actor: models.ActorSystem, Action: models.ActionJobStart, ChannelID: ch.ID}
	require.NoError(t, actions.Create(ctx, agedAction))
	require.NoError(t, db.Model(agedAction).Update("created_at", old).Error)

	cfg := config.CleanupConfig{
		JobRetention:    24 * time.Hour,
		ActionRetention: 24 * time.Hour,
	}
	r := NewRetention(cfg, jobs, deadSources, actions, discardLogger())
	r.Prune(ctx)

	var jobCount, eventCount, actionCount int64
	require.NoError(t, db.Model(&models.TranscodingJob{}).Count(&jobCount).Error)
	require.NoError(t, db.Model(&models.DeadSourceEvent{}).Count(&eventCount).Error)
	require.NoError(t, db.Model(&models.ActionLog{}).Count(&actionCount).Error)

	assert.Equal(t, int64(1), jobCount)
	assert.Equal(t, int64(1), eventCount, "unresolved events must survive")
	assert.Equal(t, int64(0), actionCount)
}
