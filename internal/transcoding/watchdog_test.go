package transcoding

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

func newTestWatchdog(h *harness) *Watchdog {
	return NewWatchdog(h.sup, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWatchdog_RestartsFailedChannel(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	h.seedProfile("passthrough", models.TierCopy, true)
	ch := h.seedChannel("flapped")
	require.NoError(t, h.stores.Channels.UpdateTranscodingState(h.ctx, ch.ID, models.TranscodingStatusFailed, "", "encoder exited"))

	w := newTestWatchdog(h)
	w.Reconcile(h.ctx)

	h.waitStatus(ch.ID, models.TranscodingStatusActive)
	assert.True(t, h.sup.HasSession(ch.ID))
	assert.True(t, h.latestJob(ch.ID).IsRetry)
	assert.Contains(t, h.actionNames(), models.ActionWatchdogRestart)
}

func TestWatchdog_LeavesSettledChannelsAlone(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	h.seedProfile("passthrough", models.TierCopy, true)

	inactive := h.seedChannel("parked")
	quarantined := h.seedChannel("cooling")
	require.NoError(t, h.stores.Channels.UpdateTranscodingState(h.ctx, quarantined.ID, models.TranscodingStatusOfflineTemporary, "", "dead source"))
	pinned := h.seedChannel("pinned")
	require.NoError(t, h.stores.Channels.UpdateTranscodingState(h.ctx, pinned.ID, models.TranscodingStatusOfflinePermanent, "", "dead source"))

	w := newTestWatchdog(h)
	w.Reconcile(h.ctx)
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, h.sup.Sessions())
	assert.Equal(t, models.TranscodingStatusInactive, h.channel(inactive.ID).TranscodingStatus)
	assert.Equal(t, models.TranscodingStatusOfflineTemporary, h.channel(quarantined.ID).TranscodingStatus)
	assert.Equal(t, models.TranscodingStatusOfflinePermanent, h.channel(pinned.ID).TranscodingStatus)
}

func TestWatchdog_DoesNotTouchHealthySessions(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	h.seedProfile("passthrough", models.TierCopy, true)
	ch := h.seedChannel("healthy")

	require.NoError(t, h.sup.Start(h.ctx, ch.ID, StartOptions{}))
	h.waitStatus(ch.ID, models.TranscodingStatusActive)
	before := h.sup.Sessions()
	require.Len(t, before, 1)

	w := newTestWatchdog(h)
	w.Reconcile(h.ctx)

	after := h.sup.Sessions()
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Token, after[0].Token, "session must not be replaced")
}

func TestWatchdog_BackoffEscalatesAndCaps(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	w := newTestWatchdog(h)
	id := models.NewULID()
	now := time.Now()
	interval := h.sup.cfg.WatchdogInterval
	maxDelay := h.sup.cfg.WatchdogMaxDelay

	assert.True(t, w.due(id, now), "unknown channel is immediately due")

	assert.Equal(t, interval, w.bump(id, now))
	assert.False(t, w.due(id, now))
	assert.True(t, w.due(id, now.Add(interval)))

	assert.Equal(t, 2*interval, w.bump(id, now))
	assert.Equal(t, 4*interval, w.bump(id, now))

	// Repeated failures cap at the configured maximum.
	var last time.Duration
	for i := 0; i < 10; i++ {
		last = w.bump(id, now)
	}
	assert.Equal(t, maxDelay, last)

	w.clear(id)
	assert.True(t, w.due(id, now))
	assert.Equal(t, interval, w.bump(id, now), "cleared channel starts over")
}

func TestWatchdog_RecoverStaleNormalizesRows(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	p := h.seedProfile("passthrough", models.TierCopy, true)

	wasActive := h.seedChannel("was-active")
	require.NoError(t, h.stores.Channels.UpdateTranscodingState(h.ctx, wasActive.ID, models.TranscodingStatusActive, "/streams/x/playlist.m3u8", ""))
	wasStopping := h.seedChannel("was-stopping")
	require.NoError(t, h.stores.Channels.UpdateTranscodingState(h.ctx, wasStopping.ID, models.TranscodingStatusStopping, "", ""))
	wasStarting := h.seedChannel("was-starting")
	require.NoError(t, h.stores.Channels.UpdateTranscodingState(h.ctx, wasStarting.ID, models.TranscodingStatusStarting, "", ""))

	staleJob := &models.TranscodingJob{
		ChannelID: wasActive.ID,
		ProfileID: p.ID,
		OutputDir: h.storage.ChannelDir(wasActive.ID.String()),
		Status:    models.JobStatusRunning,
		PID:       99999,
	}
	require.NoError(t, h.db.Create(staleJob).Error)

	w := newTestWatchdog(h)
	require.NoError(t, w.RecoverStale(h.ctx))

	job := h.latestJob(wasActive.ID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "stale job")

	assert.Equal(t, models.TranscodingStatusFailed, h.channel(wasActive.ID).TranscodingStatus)
	assert.Equal(t, models.TranscodingStatusFailed, h.channel(wasStarting.ID).TranscodingStatus)
	assert.Equal(t, models.TranscodingStatusInactive, h.channel(wasStopping.ID).TranscodingStatus)
	assert.Contains(t, h.actionNames(), models.ActionStaleRecovery)

	// The first reconcile pass relaunches what should be running.
	w.Reconcile(h.ctx)
	h.waitStatus(wasActive.ID, models.TranscodingStatusActive)
	h.waitStatus(wasStarting.ID, models.TranscodingStatusActive)
	assert.Equal(t, models.TranscodingStatusInactive, h.channel(wasStopping.ID).TranscodingStatus)
}

func TestWatchdog_RunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, writeStubEncoder(t, scriptIdle), nil)
	w := newTestWatchdog(h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog did not stop on context cancel")
	}
}
