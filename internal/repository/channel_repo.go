package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// channelRepo implements ChannelRepository using GORM.
type channelRepo struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(db *gorm.DB) *channelRepo {
	return &channelRepo{db: db}
}

// Create creates a new channel.
func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		return fmt.Errorf("creating channel: %w", err)
	}
	return nil
}

// CreateBatch creates multiple channels in a single batch.
func (r *channelRepo) CreateBatch(ctx context.Context, channels []*models.Channel) error {
	if len(channels) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(channels).Error; err != nil {
		return fmt.Errorf("creating channel batch: %w", err)
	}
	return nil
}

// GetByID retrieves a channel by ID.
func (r *channelRepo) GetByID(ctx context.Context, id models.ULID) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by ID: %w", err)
	}
	return &channel, nil
}

// GetBySourceURL retrieves a channel by its exact source URL.
func (r *channelRepo) GetBySourceURL(ctx context.Context, url string) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("source_url = ?", url).First(&channel).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel by source URL: %w", err)
	}
	return &channel, nil
}

// GetAll retrieves all channels.
func (r *channelRepo) GetAll(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).Order("number ASC, name ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting all channels: %w", err)
	}
	return channels, nil
}

// GetAllPaginated retrieves channels ordered by number then name.
func (r *channelRepo) GetAllPaginated(ctx context.Context, offset, limit int) ([]*models.Channel, int64, error) {
	var channels []*models.Channel
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Channel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting channels: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Order("number ASC, name ASC").
		Offset(offset).
		Limit(limit).
		Find(&channels).Error; err != nil {
		return nil, 0, fmt.Errorf("getting paginated channels: %w", err)
	}

	return channels, total, nil
}

// GetTranscodingEnabled retrieves all channels managed by the orchestrator.
func (r *channelRepo) GetTranscodingEnabled(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).
		Where("transcoding_enabled = ? OR transcoding_enabled IS NULL", true).
		Order("number ASC, name ASC").
		Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting transcoding-enabled channels: %w", err)
	}
	return channels, nil
}

// GetByStatus retrieves channels in the given transcoding status.
func (r *channelRepo) GetByStatus(ctx context.Context, status models.TranscodingStatus) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).Where("transcoding_status = ?", status).Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("getting channels by status: %w", err)
	}
	return channels, nil
}

// Update updates an existing channel.
func (r *channelRepo) Update(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Save(channel).Error; err != nil {
		return fmt.Errorf("updating channel: %w", err)
	}
	return nil
}

// UpdateTranscodingState writes status, published URL and offline reason in
// one statement so the row never shows a half-applied transition.
func (r *channelRepo) UpdateTranscodingState(ctx context.Context, id models.ULID, status models.TranscodingStatus, transcodedURL, offlineReason string) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"transcoding_status": status,
			"transcoded_url":     transcodedURL,
			"offline_reason":     offlineReason,
		}).Error; err != nil {
		return fmt.Errorf("updating transcoding state: %w", err)
	}
	return nil
}

// SetProfile assigns the active profile. Nil clears the assignment.
func (r *channelRepo) SetProfile(ctx context.Context, id models.ULID, profileID *models.ULID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Update("profile_id", profileID).Error; err != nil {
		return fmt.Errorf("setting channel profile: %w", err)
	}
	return nil
}

// IncrementDeadSourceCount bumps the counter and stamps the event time.
func (r *channelRepo) IncrementDeadSourceCount(ctx context.Context, id models.ULID, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"dead_source_count":      gorm.Expr("dead_source_count + 1"),
			"last_dead_source_event": at,
		}).Error; err != nil {
		return fmt.Errorf("incrementing dead source count: %w", err)
	}
	return nil
}

// ResetDeadSource zeroes the counter and clears the offline reason.
func (r *channelRepo) ResetDeadSource(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"dead_source_count": 0,
			"offline_reason":    "",
		}).Error; err != nil {
		return fmt.Errorf("resetting dead source counters: %w", err)
	}
	return nil
}

// UpdateStreamHealth writes the probed health fields.
func (r *channelRepo) UpdateStreamHealth(ctx context.Context, id models.ULID, status models.StreamHealthStatus, checkedAt time.Time, avgResponseMs int64, uptimePct float64) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stream_health_status": status,
			"last_health_check":    checkedAt,
			"avg_response_time_ms": avgResponseMs,
			"uptime_percentage":    uptimePct,
		}).Error; err != nil {
		return fmt.Errorf("updating stream health: %w", err)
	}
	return nil
}

// Delete deletes a channel by ID.
func (r *channelRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Channel{}).Error; err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}

// CountByStatus returns channel counts grouped by transcoding status.
func (r *channelRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Select("transcoding_status AS status, COUNT(*) AS count").
		Group("transcoding_status").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("counting channels by status: %w", err)
	}
	return counts, nil
}

// Transaction executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (r *channelRepo) Transaction(ctx context.Context, fn func(ChannelRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &channelRepo{db: tx}
		return fn(txRepo)
	})
}

// Ensure channelRepo implements ChannelRepository at compile time.
var _ ChannelRepository = (*channelRepo)(nil)
