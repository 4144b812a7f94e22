// Package repository defines data access interfaces for marmaricatv entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// StatusCount pairs a transcoding status with its channel count.
type StatusCount struct {
	Status models.TranscodingStatus `json:"status"`
	Count  int64                    `json:"count"`
}

// UptimeStats aggregates a channel's health records over a lookback window.
type UptimeStats struct {
	TotalChecks     int64   `json:"total_checks"`
	AvailableChecks int64   `json:"available_checks"`
	AvgResponseMs   float64 `json:"avg_response_ms"`
}

// UptimePercentage returns available/total as a percentage, 0 with no checks.
func (s UptimeStats) UptimePercentage() float64 {
	if s.TotalChecks == 0 {
		return 0
	}
	return float64(s.AvailableChecks) / float64(s.TotalChecks) * 100
}

// ChannelRepository defines operations for channel persistence.
type ChannelRepository interface {
	// Create creates a new channel.
	Create(ctx context.Context, channel *models.Channel) error
	// CreateBatch creates multiple channels in a single batch.
	CreateBatch(ctx context.Context, channels []*models.Channel) error
	// GetByID retrieves a channel by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.Channel, error)
	// GetBySourceURL retrieves a channel by its exact source URL.
	GetBySourceURL(ctx context.Context, url string) (*models.Channel, error)
	// GetAll retrieves all channels.
	GetAll(ctx context.Context) ([]*models.Channel, error)
	// GetAllPaginated retrieves channels ordered by number then name.
	GetAllPaginated(ctx context.Context, offset, limit int) ([]*models.Channel, int64, error)
	// GetTranscodingEnabled retrieves all channels managed by the orchestrator.
	GetTranscodingEnabled(ctx context.Context) ([]*models.Channel, error)
	// GetByStatus retrieves channels in the given transcoding status.
	GetByStatus(ctx context.Context, status models.TranscodingStatus) ([]*models.Channel, error)
	// Update updates an existing channel.
	Update(ctx context.Context, channel *models.Channel) error
	// UpdateTranscodingState writes status, published URL and offline reason
	// in one statement. Empty url/reason clear the columns.
	UpdateTranscodingState(ctx context.Context, id models.ULID, status models.TranscodingStatus, transcodedURL, offlineReason string) error
	// SetProfile assigns the active profile. Nil clears the assignment.
	SetProfile(ctx context.Context, id models.ULID, profileID *models.ULID) error
	// IncrementDeadSourceCount bumps the counter and stamps the event time.
	IncrementDeadSourceCount(ctx context.Context, id models.ULID, at time.Time) error
	// ResetDeadSource zeroes the counter and clears the offline reason.
	ResetDeadSource(ctx context.Context, id models.ULID) error
	// UpdateStreamHealth writes the probed health fields.
	UpdateStreamHealth(ctx context.Context, id models.ULID, status models.StreamHealthStatus, checkedAt time.Time, avgResponseMs int64, uptimePct float64) error
	// Delete deletes a channel by ID.
	Delete(ctx context.Context, id models.ULID) error
	// CountByStatus returns channel counts grouped by transcoding status.
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	// Transaction executes the given function within a database transaction.
	// The provided function receives a transactional repository.
	Transaction(ctx context.Context, fn func(ChannelRepository) error) error
}

// ProfileRepository defines operations for transcoding profile persistence.
type ProfileRepository interface {
	// Create creates a new profile.
	Create(ctx context.Context, profile *models.TranscodingProfile) error
	// GetByID retrieves a profile by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.TranscodingProfile, error)
	// GetByName retrieves a profile by its unique name.
	GetByName(ctx context.Context, name string) (*models.TranscodingProfile, error)
	// GetAll retrieves all profiles.
	GetAll(ctx context.Context) ([]*models.TranscodingProfile, error)
	// GetDefault retrieves the profile marked as default, nil if none.
	GetDefault(ctx context.Context) (*models.TranscodingProfile, error)
	// GetEnabledByTier retrieves enabled profiles at the given tier,
	// ordered by name for deterministic fallback selection.
	GetEnabledByTier(ctx context.Context, tier models.ProfileTier) ([]*models.TranscodingProfile, error)
	// SetDefault marks the profile as default and clears the flag elsewhere,
	// atomically.
	SetDefault(ctx context.Context, id models.ULID) error
	// Update updates an existing profile.
	Update(ctx context.Context, profile *models.TranscodingProfile) error
	// Delete deletes a profile by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// JobRepository defines operations for transcoding job persistence.
type JobRepository interface {
	// Create creates a new job record.
	Create(ctx context.Context, job *models.TranscodingJob) error
	// GetByID retrieves a job by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.TranscodingJob, error)
	// GetActive retrieves jobs in starting or running status.
	GetActive(ctx context.Context) ([]*models.TranscodingJob, error)
	// GetActiveByChannel retrieves the channel's active job, nil if none.
	GetActiveByChannel(ctx context.Context, channelID models.ULID) (*models.TranscodingJob, error)
	// GetByChannelPaginated retrieves a channel's job history, newest first.
	GetByChannelPaginated(ctx context.Context, channelID models.ULID, offset, limit int) ([]*models.TranscodingJob, int64, error)
	// GetAllPaginated retrieves jobs newest first.
	GetAllPaginated(ctx context.Context, offset, limit int) ([]*models.TranscodingJob, int64, error)
	// Update updates an existing job.
	Update(ctx context.Context, job *models.TranscodingJob) error
	// CountActive returns the number of active jobs.
	CountActive(ctx context.Context) (int64, error)
	// Prune deletes terminal jobs older than the cutoff, returning the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// DeadSourceRepository defines operations for dead-source event persistence.
type DeadSourceRepository interface {
	// Create creates a new event.
	Create(ctx context.Context, event *models.DeadSourceEvent) error
	// GetByID retrieves an event by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.DeadSourceEvent, error)
	// GetUnresolved retrieves unresolved events, oldest cooldown first.
	GetUnresolved(ctx context.Context) ([]*models.DeadSourceEvent, error)
	// GetLatestByChannel retrieves the channel's newest event, nil if none.
	GetLatestByChannel(ctx context.Context, channelID models.ULID) (*models.DeadSourceEvent, error)
	// ResolveByChannel marks all of the channel's events resolved.
	ResolveByChannel(ctx context.Context, channelID models.ULID) error
	// Update updates an existing event.
	Update(ctx context.Context, event *models.DeadSourceEvent) error
	// Prune deletes resolved events older than the cutoff, returning the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// ResourceRepository defines operations for resource snapshot and alert
// persistence.
type ResourceRepository interface {
	// CreateSnapshot persists one history sample.
	CreateSnapshot(ctx context.Context, snapshot *models.ResourceSnapshot) error
	// GetSnapshotsSince retrieves samples newer than the cutoff, oldest first.
	GetSnapshotsSince(ctx context.Context, since time.Time) ([]*models.ResourceSnapshot, error)
	// PruneSnapshots deletes samples older than the cutoff, returning the count.
	PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error)
	// CreateAlert persists one threshold breach.
	CreateAlert(ctx context.Context, alert *models.ResourceAlert) error
	// GetAlertsSince retrieves alerts newer than the cutoff, newest first.
	GetAlertsSince(ctx context.Context, since time.Time) ([]*models.ResourceAlert, error)
	// PruneAlerts deletes alerts older than the cutoff, returning the count.
	PruneAlerts(ctx context.Context, olderThan time.Time) (int64, error)
}

// StreamHealthRepository defines operations for stream health record
// persistence.
type StreamHealthRepository interface {
	// Create persists one probe result.
	Create(ctx context.Context, record *models.StreamHealthRecord) error
	// GetWindow retrieves a channel's records newer than the cutoff,
	// oldest first.
	GetWindow(ctx context.Context, channelID models.ULID, since time.Time) ([]*models.StreamHealthRecord, error)
	// GetUptimeStats aggregates a channel's records over the window.
	GetUptimeStats(ctx context.Context, channelID models.ULID, since time.Time) (UptimeStats, error)
	// Prune deletes records older than the cutoff, returning the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// ActionLogRepository defines operations for the append-only audit trail.
type ActionLogRepository interface {
	// Create appends one entry.
	Create(ctx context.Context, entry *models.ActionLog) error
	// GetRecentPaginated retrieves entries newest first.
	GetRecentPaginated(ctx context.Context, offset, limit int) ([]*models.ActionLog, int64, error)
	// GetByChannelPaginated retrieves a channel's entries newest first.
	GetByChannelPaginated(ctx context.Context, channelID models.ULID, offset, limit int) ([]*models.ActionLog, int64, error)
	// Prune deletes entries older than the cutoff, returning the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}
