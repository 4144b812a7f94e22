package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// deadSourceRepo implements DeadSourceRepository using GORM.
type deadSourceRepo struct {
	db *gorm.DB
}

// NewDeadSourceRepository creates a new DeadSourceRepository.
func NewDeadSourceRepository(db *gorm.DB) *deadSourceRepo {
	return &deadSourceRepo{db: db}
}

// Create creates a new event.
func (r *deadSourceRepo) Create(ctx context.Context, event *models.DeadSourceEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("creating dead source event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID.
func (r *deadSourceRepo) GetByID(ctx context.Context, id models.ULID) (*models.DeadSourceEvent, error) {
	var event models.DeadSourceEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting dead source event by ID: %w", err)
	}
	return &event, nil
}

// GetUnresolved retrieves unresolved events, oldest cooldown first.
func (r *deadSourceRepo) GetUnresolved(ctx context.Context) ([]*models.DeadSourceEvent, error) {
	var events []*models.DeadSourceEvent
	if err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("cooldown_until ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("getting unresolved dead source events: %w", err)
	}
	return events, nil
}

// GetLatestByChannel retrieves the channel's newest event, nil if none.
func (r *deadSourceRepo) GetLatestByChannel(ctx context.Context, channelID models.ULID) (*models.DeadSourceEvent, error) {
	var event models.DeadSourceEvent
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest dead source event: %w", err)
	}
	return &event, nil
}

// ResolveByChannel marks all of the channel's events resolved.
func (r *deadSourceRepo) ResolveByChannel(ctx context.Context, channelID models.ULID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.DeadSourceEvent{}).
		Where("channel_id = ? AND resolved = ?", channelID, false).
		Update("resolved", true).Error; err != nil {
		return fmt.Errorf("resolving dead source events: %w", err)
	}
	return nil
}

// Update updates an existing event.
func (r *deadSourceRepo) Update(ctx context.Context, event *models.DeadSourceEvent) error {
	if err := r.db.WithContext(ctx).Save(event).Error; err != nil {
		return fmt.Errorf("updating dead source event: %w", err)
	}
	return nil
}

// Prune deletes resolved events older than the cutoff, returning the count.
func (r *deadSourceRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("resolved = ? AND created_at < ?", true, olderThan).
		Delete(&models.DeadSourceEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning dead source events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ensure deadSourceRepo implements DeadSourceRepository at compile time.
var _ DeadSourceRepository = (*deadSourceRepo)(nil)
