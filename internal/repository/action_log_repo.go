package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// actionLogRepo implements ActionLogRepository using GORM.
type actionLogRepo struct {
	db *gorm.DB
}

// NewActionLogRepository creates a new ActionLogRepository.
func NewActionLogRepository(db *gorm.DB) *actionLogRepo {
	return &actionLogRepo{db: db}
}

// Create appends one entry.
func (r *actionLogRepo) Create(ctx context.Context, entry *models.ActionLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("creating action log entry: %w", err)
	}
	return nil
}

// GetRecentPaginated retrieves entries newest first.
func (r *actionLogRepo) GetRecentPaginated(ctx context.Context, offset, limit int) ([]*models.ActionLog, int64, error) {
	var entries []*models.ActionLog
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.ActionLog{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting action log entries: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("getting action log entries: %w", err)
	}

	return entries, total, nil
}

// GetByChannelPaginated retrieves a channel's entries newest first.
func (r *actionLogRepo) GetByChannelPaginated(ctx context.Context, channelID models.ULID, offset, limit int) ([]*models.ActionLog, int64, error) {
	var entries []*models.ActionLog
	var total int64

	if err := r.db.WithContext(ctx).
		Model(&models.ActionLog{}).
		Where("channel_id = ?", channelID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting channel action log entries: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("getting channel action log entries: %w", err)
	}

	return entries, total, nil
}

// Prune deletes entries older than the cutoff, returning the count.
func (r *actionLogRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.ActionLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning action log entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ensure actionLogRepo implements ActionLogRepository at compile time.
var _ ActionLogRepository = (*actionLogRepo)(nil)
