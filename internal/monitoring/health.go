package monitoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"golang.org/x/sync/semaphore"
)

const (
	// degradedUptimePct is the rolling uptime below which a reachable
	// source is classified degraded.
	degradedUptimePct = 95.0

	// minChecksForUptime is how many window records the uptime
	// classification needs before it outranks the latest probe. One early
	// failure would otherwise read as 50% uptime.
	minChecksForUptime = 5
)

// HealthMonitor probes every transcoding-enabled channel's source on a
// fixed interval. Probes fan out in parallel bounded by a weighted
// semaphore, each with its own timeout. Results land in an in-memory cache
// for the API, append to the health record history, and roll up into the
// channel's uptime fields. Source health never drives the transcoding
// lifecycle; a channel can be actively transcoding a source the prober
// cannot validate.
type HealthMonitor struct {
	cfg      config.HealthConfig
	prober   *Prober
	channels repository.ChannelRepository
	records  repository.StreamHealthRepository
	logger   *slog.Logger

	sem *semaphore.Weighted

	mu      sync.RWMutex
	results map[models.ULID]ProbeResult
}

// NewHealthMonitor creates a health monitor.
func NewHealthMonitor(cfg config.HealthConfig, prober *Prober, channels repository.ChannelRepository, records repository.StreamHealthRepository, logger *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		cfg:      cfg,
		prober:   prober,
		channels: channels,
		records:  records,
		logger:   logger.With(slog.String("component", "health-monitor")),
		sem:      semaphore.NewWeighted(cfg.MaxConcurrentProbes),
		results:  make(map[models.ULID]ProbeResult),
	}
}

// Run probes on the configured interval until the context ends.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.ProbeInterval)
	defer ticker.Stop()

	h.logger.Info("health monitor started",
		slog.Duration("interval", h.cfg.ProbeInterval),
		slog.Int64("max_concurrent", h.cfg.MaxConcurrentProbes))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("health monitor stopped")
			return
		case <-ticker.C:
			h.ProbeAll(ctx)
		}
	}
}

// ProbeAll probes every transcoding-enabled channel once and waits for the
// sweep to finish.
func (h *HealthMonitor) ProbeAll(ctx context.Context) {
	channels, err := h.channels.GetTranscodingEnabled(ctx)
	if err != nil {
		h.logger.Error("listing channels for health sweep", slog.Any("error", err))
		return
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		if err := h.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(ch *models.Channel) {
			defer wg.Done()
			defer h.sem.Release(1)
			h.probeChannel(ctx, ch)
		}(ch)
	}
	wg.Wait()
}

func (h *HealthMonitor) probeChannel(ctx context.Context, ch *models.Channel) {
	probeCtx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
	defer cancel()

	res := h.prober.Probe(probeCtx, ch.SourceURL)

	h.mu.Lock()
	h.results[ch.ID] = res
	h.mu.Unlock()

	if !res.Available {
		h.logger.Debug("source probe failed",
			slog.String("channel_id", ch.ID.String()),
			slog.String("method", string(res.Method)),
			slog.String("error", res.Error))
	}

	record := &models.StreamHealthRecord{
		ChannelID:      ch.ID,
		Available:      res.Available,
		ResponseTimeMs: res.ResponseTime.Milliseconds(),
		StatusCode:     res.StatusCode,
		Method:         res.Method,
		ErrorMessage:   res.Error,
		CheckedAt:      res.CheckedAt,
	}
	if err := h.records.Create(ctx, record); err != nil {
		h.logger.Warn("persisting health record",
			slog.String("channel_id", ch.ID.String()),
			slog.Any("error", err))
	}

	h.updateChannel(ctx, ch.ID, res)
}

// updateChannel rolls the window statistics into the channel's health
// fields.
func (h *HealthMonitor) updateChannel(ctx context.Context, id models.ULID, res ProbeResult) {
	since := time.Now().Add(-h.cfg.UptimeWindow)
	stats, err := h.records.GetUptimeStats(ctx, id, since)
	if err != nil {
		h.logger.Warn("aggregating uptime stats",
			slog.String("channel_id", id.String()),
			slog.Any("error", err))
		return
	}

	status := healthStatus(res, stats)
	if err := h.channels.UpdateStreamHealth(ctx, id, status, res.CheckedAt, int64(stats.AvgResponseMs), stats.UptimePercentage()); err != nil {
		h.logger.Warn("updating channel health",
			slog.String("channel_id", id.String()),
			slog.Any("error", err))
	}
}

// Results returns a copy of the latest probe result per channel.
func (h *HealthMonitor) Results() map[models.ULID]ProbeResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[models.ULID]ProbeResult, len(h.results))
	for id, res := range h.results {
		out[id] = res
	}
	return out
}

// Result returns the latest probe result for one channel.
func (h *HealthMonitor) Result(id models.ULID) (ProbeResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res, ok := h.results[id]
	return res, ok
}

// Forget drops a channel's cached result, for channel deletion.
func (h *HealthMonitor) Forget(id models.ULID) {
	h.mu.Lock()
	delete(h.results, id)
	h.mu.Unlock()
}

// PruneRecords drops health records older than the uptime window, returning
// the number of rows removed.
func (h *HealthMonitor) PruneRecords(ctx context.Context) (int64, error) {
	return h.records.Prune(ctx, time.Now().Add(-h.cfg.UptimeWindow))
}

// healthStatus classifies a channel from its latest probe and window stats.
// The latest probe wins when it failed; otherwise poor rolling uptime
// demotes a reachable source to degraded.
func healthStatus(res ProbeResult, stats repository.UptimeStats) models.StreamHealthStatus {
	if !res.Available {
		return models.StreamHealthUnavailable
	}
	if stats.TotalChecks >= minChecksForUptime && stats.UptimePercentage() < degradedUptimePct {
		return models.StreamHealthDegraded
	}
	return models.StreamHealthHealthy
}
