package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func healthConfig() config.HealthConfig {
	return config.HealthConfig{
		Enabled:             true,
		ProbeInterval:       time.Second,
		ProbeTimeout:        3 * time.Second,
		UptimeWindow:        24 * time.Hour,
		MaxConcurrentProbes: 4,
	}
}

func seedHealthChannel(t *testing.T, db *gorm.DB, name, sourceURL string, enabled bool) *models.Channel {
	t.Helper()
	ch := &models.Channel{
		Name:               name,
		SourceURL:          sourceURL,
		TranscodingEnabled: models.BoolPtr(enabled),
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}

func newTestHealthMonitor(t *testing.T, db *gorm.DB, cfg config.HealthConfig, ffprobeBody string) *HealthMonitor {
	t.Helper()
	ffprobe := ffmpeg.NewProber(writeStubFFprobe(t, ffprobeBody)).WithTimeout(time.Second)
	prober := NewProber(probeClient(t), ffprobe, discardLogger())
	return NewHealthMonitor(cfg, prober,
		repository.NewChannelRepository(db),
		repository.NewStreamHealthRepository(db),
		discardLogger())
}

func TestHealthMonitor_ProbeAllRecordsResults(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, mediaManifest)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer bad.Close()

	chGood := seedHealthChannel(t, db, "news", good.URL+"/stream.m3u8", true)
	chBad := seedHealthChannel(t, db, "sports", bad.URL+"/stream.m3u8", true)

	h := newTestHealthMonitor(t, db, healthConfig(), ffprobeFailure)
	h.ProbeAll(ctx)

	resGood, ok := h.Result(chGood.ID)
	require.True(t, ok)
	assert.True(t, resGood.Available)
	assert.Equal(t, models.DetectionMethodHLS, resGood.Method)

	resBad, ok := h.Result(chBad.ID)
	require.True(t, ok)
	assert.False(t, resBad.Available)
	assert.Len(t, h.Results(), 2)

	records := repository.NewStreamHealthRepository(db)
	since := time.Now().Add(-time.Minute)

	goodRecords, err := records.GetWindow(ctx, chGood.ID, since)
	require.NoError(t, err)
	require.Len(t, goodRecords, 1)
	assert.True(t, goodRecords[0].Available)
	assert.Equal(t, models.DetectionMethodHLS, goodRecords[0].Method)

	badRecords, err := records.GetWindow(ctx, chBad.ID, since)
	require.NoError(t, err)
	require.Len(t, badRecords, 1)
	assert.False(t, badRecords[0].Available)
	assert.Equal(t, http.StatusNotFound, badRecords[0].StatusCode)

	channels := repository.NewChannelRepository(db)

	reloaded, err := channels.GetByID(ctx, chGood.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StreamHealthHealthy, reloaded.StreamHealthStatus)
	assert.Equal(t, float64(100), reloaded.UptimePercentage)
	require.NotNil(t, reloaded.LastHealthCheck)

	reloaded, err = channels.GetByID(ctx, chBad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StreamHealthUnavailable, reloaded.StreamHealthStatus)
	assert.Equal(t, float64(0), reloaded.UptimePercentage)
}

func TestHealthMonitor_SkipsUnmanagedChannels(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, mediaManifest)
	}))
	defer srv.Close()

	managed := seedHealthChannel(t, db, "managed", srv.URL+"/a.m3u8", true)
	unmanaged := seedHealthChannel(t, db, "unmanaged", srv.URL+"/b.m3u8", false)

	h := newTestHealthMonitor(t, db, healthConfig(), ffprobeFailure)
	h.ProbeAll(ctx)

	_, ok := h.Result(managed.ID)
	assert.True(t, ok)
	_, ok = h.Result(unmanaged.ID)
	assert.False(t, ok)

	records := repository.NewStreamHealthRepository(db)
	rows, err := records.GetWindow(ctx, unmanaged.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHealthMonitor_DegradedOnPoorUptime(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	ch := seedHealthChannel(t, db, "flaky", "http://origin.example.com/flaky.ts", true)
	records := repository.NewStreamHealthRepository(db)

	// 9 good and 3 failed checks in the window: 75% uptime.
	for i := 0; i < 9; i++ {
		require.NoError(t, records.Create(ctx, &models.StreamHealthRecord{
			ChannelID: ch.ID,
			Available: true,
			Method:    models.DetectionMethodTS,
			CheckedAt: time.Now().Add(-time.Duration(i+1) * time.Minute),
		}))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, records.Create(ctx, &models.StreamHealthRecord{
			ChannelID:    ch.ID,
			Available:    false,
			Method:       models.DetectionMethodHTTP,
			ErrorMessage: "HTTP 503",
			CheckedAt:    time.Now().Add(-time.Duration(i+10) * time.Minute),
		}))
	}

	h := newTestHealthMonitor(t, db, healthConfig(), ffprobeFailure)
	h.updateChannel(ctx, ch.ID, ProbeResult{
		Available: true,
		Method:    models.DetectionMethodTS,
		CheckedAt: time.Now(),
	})

	reloaded, err := repository.NewChannelRepository(db).GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StreamHealthDegraded, reloaded.StreamHealthStatus)
	assert.InDelta(t, 75, reloaded.UptimePercentage, 0.1)
}

func TestHealthStatus(t *testing.T) {
	tests := []struct {
		name  string
		res   ProbeResult
		stats repository.UptimeStats
		want  models.StreamHealthStatus
	}{
		{
			name:  "latest failure wins",
			res:   ProbeResult{Available: false},
			stats: repository.UptimeStats{TotalChecks: 100, AvailableChecks: 100},
			want:  models.StreamHealthUnavailable,
		},
		{
			name:  "too few checks for uptime demotion",
			res:   ProbeResult{Available: true},
			stats: repository.UptimeStats{TotalChecks: 4, AvailableChecks: 2},
			want:  models.StreamHealthHealthy,
		},
		{
			name:  "poor uptime demotes",
			res:   ProbeResult{Available: true},
			stats: repository.UptimeStats{TotalChecks: 20, AvailableChecks: 18},
			want:  models.StreamHealthDegraded,
		},
		{
			name:  "full uptime",
			res:   ProbeResult{Available: true},
			stats: repository.UptimeStats{TotalChecks: 20, AvailableChecks: 20},
			want:  models.StreamHealthHealthy,
		},
		{
			name:  "no history yet",
			res:   ProbeResult{Available: true},
			stats: repository.UptimeStats{},
			want:  models.StreamHealthHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, healthStatus(tt.res, tt.stats))
		})
	}
}

func TestHealthMonitor_BoundsConcurrentProbes(t *testing.T) {
	db := setupDB(t)

	var current, peak atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := current.Add(1)
		for {
			p := peak.Load()
			if c <= p || peak.CompareAndSwap(p, c) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		current.Add(-1)
		io.WriteString(w, mediaManifest)
	}))
	defer srv.Close()

	for i := 0; i < 6; i++ {
		seedHealthChannel(t, db, "ch"+string(rune('a'+i)), srv.URL+"/stream.m3u8", true)
	}

	cfg := healthConfig()
	cfg.MaxConcurrentProbes = 2
	h := newTestHealthMonitor(t, db, cfg, ffprobeFailure)
	h.ProbeAll(context.Background())

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Len(t, h.Results(), 6)
}

func TestHealthMonitor_PruneRecords(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	ch := seedHealthChannel(t, db, "old", "http://origin.example.com/old.ts", true)
	records := repository.NewStreamHealthRepository(db)

	require.NoError(t, records.Create(ctx, &models.StreamHealthRecord{
		ChannelID: ch.ID,
		Available: true,
		Method:    models.DetectionMethodTS,
		CheckedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, records.Create(ctx, &models.StreamHealthRecord{
		ChannelID: ch.ID,
		Available: true,
		Method:    models.DetectionMethodTS,
		CheckedAt: time.Now(),
	}))

	h := newTestHealthMonitor(t, db, healthConfig(), ffprobeFailure)
	removed, err := h.PruneRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := records.GetWindow(ctx, ch.ID, time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestHealthMonitor_ForgetDropsCachedResult(t *testing.T) {
	db := setupDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, mediaManifest)
	}))
	defer srv.Close()

	ch := seedHealthChannel(t, db, "gone", srv.URL+"/stream.m3u8", true)
	h := newTestHealthMonitor(t, db, healthConfig(), ffprobeFailure)
	h.ProbeAll(context.Background())

	_, ok := h.Result(ch.ID)
	require.True(t, ok)

	h.Forget(ch.ID)
	_, ok = h.Result(ch.ID)
	assert.False(t, ok)
}

func TestHealthMonitor_RunStopsOnContextCancel(t *testing.T) {
	db := setupDB(t)
	h := newTestHealthMonitor(t, db, healthConfig(), ffprobeFailure)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}
}
