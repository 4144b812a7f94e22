package monitoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
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
		&models.StreamHealthRecord{},
		&models.ResourceSnapshot{},
		&models.ResourceAlert{},
	))

	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// monitorConfig returns thresholds no real sample reaches; tests that need
// a breach lower them explicitly.
func monitorConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		Enabled:        true,
		Interval:       time.Second,
		CPUWarning:     1000,
		CPUCritical:    2000,
		MemoryWarning:  1000,
		MemoryCritical: 2000,
		DiskWarning:    1000,
		DiskCritical:   2000,
		AlertCooldown:  5 * time.Minute,
		Retention:      24 * time.Hour,
		SnapshotRate:   1,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  models.HealthLevel
	}{
		{"below warning", 50, models.HealthLevelHealthy},
		{"at warning", 80, models.HealthLevelWarning},
		{"between thresholds", 87.5, models.HealthLevelWarning},
		{"at critical", 95, models.HealthLevelCritical},
		{"above critical", 99.9, models.HealthLevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.value, 80, 95))
		})
	}
}

func TestResourceMonitor_SampleReadsHostMetrics(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewResourceRepository(db)
	m := NewResourceMonitor(monitorConfig(), t.TempDir(), repo, func() int { return 3 }, discardLogger())

	ctx := context.Background()
	reading := m.Sample(ctx)

	assert.Equal(t, 3, reading.Snapshot.ActiveJobs)
	assert.NotZero(t, reading.Snapshot.MemoryTotalBytes)
	assert.NotZero(t, reading.Snapshot.DiskTotalBytes)
	assert.Equal(t, models.HealthLevelHealthy, reading.Snapshot.OverallHealth)
	assert.Equal(t, models.HealthLevelHealthy, reading.Levels.Disk)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, reading.Snapshot.MemoryUsedBytes, current.Snapshot.MemoryUsedBytes)

	// SnapshotRate 1 persists every sample.
	snaps, err := repo.GetSnapshotsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 3, snaps[0].ActiveJobs)
}

func TestResourceMonitor_CurrentEmptyBeforeFirstSample(t *testing.T) {
	db := setupDB(t)
	m := NewResourceMonitor(monitorConfig(), t.TempDir(), repository.NewResourceRepository(db), nil, discardLogger())

	_, ok := m.Current()
	assert.False(t, ok)
}

func TestResourceMonitor_AlertCooldown(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewResourceRepository(db)

	cfg := monitorConfig()
	cfg.MemoryWarning = -1 // every sample breaches
	cfg.AlertCooldown = time.Hour
	m := NewResourceMonitor(cfg, t.TempDir(), repo, nil, discardLogger())

	ctx := context.Background()
	m.Sample(ctx)
	m.Sample(ctx)

	alerts, err := repo.GetAlertsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeMemory, alerts[0].Type)
	assert.Equal(t, models.HealthLevelWarning, alerts[0].Level)
	assert.Equal(t, float64(-1), alerts[0].Threshold)
	assert.Contains(t, alerts[0].Message, "memory")

	// A lapsed cooldown lets the next breach fire again.
	m.mu.Lock()
	m.lastAlert[models.AlertTypeMemory] = time.Now().Add(-2 * time.Hour)
	m.mu.Unlock()
	m.Sample(ctx)

	alerts, err = repo.GetAlertsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

// failingAlertStore rejects the first n CreateAlert calls and delegates the
// rest to the real repository.
type failingAlertStore struct {
	repository.ResourceRepository
	failuresLeft int
}

func (f *failingAlertStore) CreateAlert(ctx context.Context, alert *models.ResourceAlert) error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("database is locked")
	}
	return f.ResourceRepository.CreateAlert(ctx, alert)
}

func TestResourceMonitor_FailedAlertPersistRetriesNextCycle(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewResourceRepository(db)
	store := &failingAlertStore{ResourceRepository: repo, failuresLeft: 1}

	cfg := monitorConfig()
	cfg.MemoryWarning = -1 // every sample breaches
	cfg.AlertCooldown = time.Hour
	m := NewResourceMonitor(cfg, t.TempDir(), store, nil, discardLogger())

	ctx := context.Background()

	// The first breach fails to persist, so it must not start the cooldown.
	m.Sample(ctx)
	alerts, err := repo.GetAlertsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// The next cycle's breach goes through; only then does the cooldown
	// suppress further alerts.
	m.Sample(ctx)
	m.Sample(ctx)

	alerts, err = repo.GetAlertsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeMemory, alerts[0].Type)
}

func TestResourceMonitor_SnapshotRateZeroKeepsHistoryEmpty(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewResourceRepository(db)

	cfg := monitorConfig()
	cfg.SnapshotRate = 0
	m := NewResourceMonitor(cfg, t.TempDir(), repo, nil, discardLogger())

	ctx := context.Background()
	m.Sample(ctx)
	m.Sample(ctx)
	m.Sample(ctx)

	snaps, err := repo.GetSnapshotsSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, snaps)

	// The in-memory reading still updates.
	_, ok := m.Current()
	assert.True(t, ok)
}

func TestResourceMonitor_PruneHistory(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewResourceRepository(db)
	ctx := context.Background()

	backdate := func(model any, id models.ULID) {
		require.NoError(t, db.Model(model).
			Where("id = ?", id).
			Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	}

	oldSnap := &models.ResourceSnapshot{OverallHealth: models.HealthLevelHealthy}
	require.NoError(t, repo.CreateSnapshot(ctx, oldSnap))
	backdate(&models.ResourceSnapshot{}, oldSnap.ID)

	oldAlert := &models.ResourceAlert{
		Type:      models.AlertTypeDisk,
		Level:     models.HealthLevelWarning,
		Value:     91,
		Threshold: 90,
		Message:   "disk usage 91.0% exceeds warning threshold 90.0%",
	}
	require.NoError(t, repo.CreateAlert(ctx, oldAlert))
	backdate(&models.ResourceAlert{}, oldAlert.ID)

	fresh := &models.ResourceSnapshot{OverallHealth: models.HealthLevelHealthy}
	require.NoError(t, repo.CreateSnapshot(ctx, fresh))

	m := NewResourceMonitor(monitorConfig(), t.TempDir(), repo, nil, discardLogger())
	removed, err := m.PruneHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	snaps, err := repo.GetSnapshotsSince(ctx, time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, fresh.ID, snaps[0].ID)
}

func TestResourceMonitor_RunStopsOnContextCancel(t *testing.T) {
	db := setupDB(t)
	m := NewResourceMonitor(monitorConfig(), t.TempDir(), repository.NewResourceRepository(db), nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}
}
