package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHealthRepo_GetUptimeStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStreamHealthRepository(db)
	ctx := context.Background()

	channel := createTestChannel(t, db, "uptime")
	now := time.Now()

	// 8 available and 2 unavailable probes inside the window.
	for i := 0; i < 8; i++ {
		require.NoError(t, repo.Create(ctx, &models.StreamHealthRecord{
			ChannelID:      channel.ID,
			Available:      true,
			ResponseTimeMs: 100,
			Method:         models.DetectionMethodHTTP,
			CheckedAt:      now.Add(-time.Duration(i) * time.Minute),
		}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &models.StreamHealthRecord{
			ChannelID:    channel.ID,
			Available:    false,
			Method:       models.DetectionMethodFFprobe,
			ErrorMessage: "connection refused",
			CheckedAt:    now.Add(-time.Duration(10+i) * time.Minute),
		}))
	}

	// One record outside the window must not count.
	require.NoError(t, repo.Create(ctx, &models.StreamHealthRecord{
		ChannelID: channel.ID,
		Available: false,
		Method:    models.DetectionMethodHTTP,
		CheckedAt: now.Add(-25 * time.Hour),
	}))

	stats, err := repo.GetUptimeStats(ctx, channel.ID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalChecks)
	assert.Equal(t, int64(8), stats.AvailableChecks)
	assert.InDelta(t, 80.0, stats.UptimePercentage(), 0.001)
	assert.InDelta(t, 100.0, stats.AvgResponseMs, 0.001)
}

func TestStreamHealthRepo_GetUptimeStats_NoRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStreamHealthRepository(db)

	stats, err := repo.GetUptimeStats(context.Background(), models.NewULID(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChecks)
	assert.Zero(t, stats.UptimePercentage())
}

func TestStreamHealthRepo_Prune(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStreamHealthRepository(db)
	ctx := context.Background()

	channel := createTestChannel(t, db, "pruned")
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.StreamHealthRecord{
		ChannelID: channel.ID,
		Available: true,
		Method:    models.DetectionMethodHTTP,
		CheckedAt: now,
	}))
	require.NoError(t, repo.Create(ctx, &models.StreamHealthRecord{
		ChannelID: channel.ID,
		Available: true,
		Method:    models.DetectionMethodHTTP,
		CheckedAt: now.Add(-48 * time.Hour),
	}))

	pruned, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	records, err := repo.GetWindow(ctx, channel.ID, now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
