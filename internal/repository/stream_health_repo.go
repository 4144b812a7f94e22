package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// streamHealthRepo implements StreamHealthRepository using GORM.
type streamHealthRepo struct {
	db *gorm.DB
}

// NewStreamHealthRepository creates a new StreamHealthRepository.
func NewStreamHealthRepository(db *gorm.DB) *streamHealthRepo {
	return &streamHealthRepo{db: db}
}

// Create persists one probe result.
func (r *streamHealthRepo) Create(ctx context.Context, record *models.StreamHealthRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("creating stream health record: %w", err)
	}
	return nil
}

// GetWindow retrieves a channel's records newer than the cutoff, oldest first.
func (r *streamHealthRepo) GetWindow(ctx context.Context, channelID models.ULID, since time.Time) ([]*models.StreamHealthRecord, error) {
	var records []*models.StreamHealthRecord
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND checked_at >= ?", channelID, since).
		Order("checked_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting stream health window: %w", err)
	}
	return records, nil
}

// GetUptimeStats aggregates a channel's records over the window with a single
// query so the 24h window never loads row by row.
func (r *streamHealthRepo) GetUptimeStats(ctx context.Context, channelID models.ULID, since time.Time) (UptimeStats, error) {
	var stats UptimeStats
	if err := r.db.WithContext(ctx).
		Model(&models.StreamHealthRecord{}).
		Select(
			"COUNT(*) AS total_checks, "+
				"COALESCE(SUM(CASE WHEN available THEN 1 ELSE 0 END), 0) AS available_checks, "+
				"COALESCE(AVG(CASE WHEN available THEN response_time_ms END), 0) AS avg_response_ms").
		Where("channel_id = ? AND checked_at >= ?", channelID, since).
		Scan(&stats).Error; err != nil {
		return UptimeStats{}, fmt.Errorf("aggregating stream health stats: %w", err)
	}
	return stats, nil
}

// Prune deletes records older than the cutoff, returning the count.
func (r *streamHealthRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("checked_at < ?", olderThan).
		Delete(&models.StreamHealthRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning stream health records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ensure streamHealthRepo implements StreamHealthRepository at compile time.
var _ StreamHealthRepository = (*streamHealthRepo)(nil)
