// Package monitoring watches host resources and source stream availability.
//
// The resource monitor samples orchestrator CPU, system memory and
// output-disk usage on a fixed interval, classifies each metric against
// configured thresholds and raises rate-limited alerts on breaches. The
// health monitor probes every transcoding-enabled channel's source URL and
// maintains rolling uptime statistics. Neither loop ever changes a channel's
// transcoding status; they observe and report.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// cpuSampleCount is the rolling window size for process CPU smoothing.
// Percent(0) reports usage since the previous call, so single readings
// are spiky.
const cpuSampleCount = 6

// ActiveJobsFunc reports the current live session count. Wired to the
// supervisor's registry so the monitor does not depend on it.
type ActiveJobsFunc func() int

// MetricLevels carries the per-metric classification of one sample.
type MetricLevels struct {
	CPU    models.HealthLevel `json:"cpu"`
	Memory models.HealthLevel `json:"memory"`
	Disk   models.HealthLevel `json:"disk"`
}

// Reading is the most recent sample together with its classification.
type Reading struct {
	Snapshot  models.ResourceSnapshot `json:"snapshot"`
	Levels    MetricLevels            `json:"levels"`
	SampledAt time.Time               `json:"sampled_at"`
}

// ResourceMonitor samples host health on a fixed interval. A configured
// fraction of samples persists as history; every sample updates the
// in-memory reading served to the API and admission diagnostics.
type ResourceMonitor struct {
	cfg        config.MonitoringConfig
	outputRoot string
	resources  repository.ResourceRepository
	activeJobs ActiveJobsFunc
	logger     *slog.Logger

	// proc is nil when self-inspection is unavailable; CPU then reads 0.
	proc *process.Process

	mu         sync.RWMutex
	cpuSamples []float64
	current    *Reading
	lastAlert  map[models.AlertType]time.Time
}

// NewResourceMonitor creates a resource monitor sampling disk usage at
// outputRoot, the directory the encoder jobs write to.
func NewResourceMonitor(cfg config.MonitoringConfig, outputRoot string, resources repository.ResourceRepository, activeJobs ActiveJobsFunc, logger *slog.Logger) *ResourceMonitor {
	m := &ResourceMonitor{
		cfg:        cfg,
		outputRoot: outputRoot,
		resources:  resources,
		activeJobs: activeJobs,
		logger:     logger.With(slog.String("component", "resource-monitor")),
		lastAlert:  make(map[models.AlertType]time.Time),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		m.proc = proc
	} else {
		m.logger.Warn("process self-inspection unavailable", slog.Any("error", err))
	}
	return m
}

// Run samples on the configured interval until the context ends.
func (m *ResourceMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.Info("resource monitor started",
		slog.Duration("interval", m.cfg.Interval),
		slog.String("output_root", m.outputRoot))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("resource monitor stopped")
			return
		case <-ticker.C:
			m.Sample(ctx)
		}
	}
}

// Sample takes one reading. Metric sources that fail leave their fields
// zero rather than aborting the sample.
func (m *ResourceMonitor) Sample(ctx context.Context) Reading {
	now := time.Now()
	snap := models.ResourceSnapshot{}
	if m.activeJobs != nil {
		snap.ActiveJobs = m.activeJobs()
	}

	if m.proc != nil {
		if pct, err := m.proc.PercentWithContext(ctx, 0); err == nil {
			snap.CPUPercent = m.rollCPU(pct)
		}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryUsedBytes = vm.Used
		snap.MemoryTotalBytes = vm.Total
	}

	if du, err := disk.UsageWithContext(ctx, m.outputRoot); err == nil {
		snap.DiskUsedBytes = du.Used
		snap.DiskTotalBytes = du.Total
		snap.DiskPercent = du.UsedPercent
	}

	levels := MetricLevels{
		CPU:    classify(snap.CPUPercent, m.cfg.CPUWarning, m.cfg.CPUCritical),
		Memory: classify(snap.MemoryPercent(), m.cfg.MemoryWarning, m.cfg.MemoryCritical),
		Disk:   classify(snap.DiskPercent, m.cfg.DiskWarning, m.cfg.DiskCritical),
	}
	snap.OverallHealth = models.WorstHealthLevel(levels.CPU, levels.Memory, levels.Disk)

	reading := Reading{Snapshot: snap, Levels: levels, SampledAt: now}

	m.mu.Lock()
	m.current = &reading
	m.mu.Unlock()

	m.raiseAlerts(ctx, &snap, levels, now)

	if rand.Float64() < m.cfg.SnapshotRate {
		persisted := snap
		if err := m.resources.CreateSnapshot(ctx, &persisted); err != nil {
			m.logger.Warn("persisting resource snapshot", slog.Any("error", err))
		}
	}

	return reading
}

// Current returns the most recent reading, false before the first sample.
func (m *ResourceMonitor) Current() (Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Reading{}, false
	}
	return *m.current, true
}

// PruneHistory drops snapshots and alerts past the retention window,
// returning the number of rows removed.
func (m *ResourceMonitor) PruneHistory(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-m.cfg.Retention)

	snapshots, err := m.resources.PruneSnapshots(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning resource snapshots: %w", err)
	}
	alerts, err := m.resources.PruneAlerts(ctx, cutoff)
	if err != nil {
		return snapshots, fmt.Errorf("pruning resource alerts: %w", err)
	}
	return snapshots + alerts, nil
}

// rollCPU folds one raw reading into the rolling window and returns the mean.
func (m *ResourceMonitor) rollCPU(pct float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cpuSamples = append(m.cpuSamples, pct)
	if len(m.cpuSamples) > cpuSampleCount {
		m.cpuSamples = m.cpuSamples[len(m.cpuSamples)-cpuSampleCount:]
	}

	var sum float64
	for _, s := range m.cpuSamples {
		sum += s
	}
	return sum / float64(len(m.cpuSamples))
}

func (m *ResourceMonitor) raiseAlerts(ctx context.Context, snap *models.ResourceSnapshot, levels MetricLevels, now time.Time) {
	m.alertIf(ctx, models.AlertTypeCPU, levels.CPU, snap.CPUPercent, m.cfg.CPUWarning, m.cfg.CPUCritical, now)
	m.alertIf(ctx, models.AlertTypeMemory, levels.Memory, snap.MemoryPercent(), m.cfg.MemoryWarning, m.cfg.MemoryCritical, now)
	m.alertIf(ctx, models.AlertTypeDisk, levels.Disk, snap.DiskPercent, m.cfg.DiskWarning, m.cfg.DiskCritical, now)
}

// alertIf persists a breach unless one of the same type fired within the
// cooldown window. At most one alert per type per window regardless of how
// many cycles observe the breach.
func (m *ResourceMonitor) alertIf(ctx context.Context, typ models.AlertType, level models.HealthLevel, value, warn, crit float64, now time.Time) {
	if level == models.HealthLevelHealthy {
		return
	}

	m.mu.Lock()
	last, seen := m.lastAlert[typ]
	m.mu.Unlock()
	if seen && now.Sub(last) < m.cfg.AlertCooldown {
		return
	}

	threshold := warn
	if level == models.HealthLevelCritical {
		threshold = crit
	}

	alert := &models.ResourceAlert{
		Type:      typ,
		Level:     level,
		Value:     value,
		Threshold: threshold,
		Message:   fmt.Sprintf("%s usage %.1f%% exceeds %s threshold %.1f%%", typ, value, level, threshold),
	}
	// The cooldown stamp waits for the durable write; a failed persist
	// leaves the next cycle free to retry.
	if err := m.resources.CreateAlert(ctx, alert); err != nil {
		m.logger.Error("persisting resource alert", slog.Any("error", err))
		return
	}

	m.mu.Lock()
	m.lastAlert[typ] = now
	m.mu.Unlock()

	m.logger.Warn("resource threshold breached",
		slog.String("type", string(typ)),
		slog.String("level", string(level)),
		slog.Float64("value", value),
		slog.Float64("threshold", threshold))
}

// classify grades a percentage against its thresholds.
func classify(value, warn, crit float64) models.HealthLevel {
	switch {
	case value >= crit:
		return models.HealthLevelCritical
	case value >= warn:
		return models.HealthLevelWarning
	default:
		return models.HealthLevelHealthy
	}
}
