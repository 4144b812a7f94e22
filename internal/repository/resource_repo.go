package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// resourceRepo implements ResourceRepository using GORM.
type resourceRepo struct {
	db *gorm.DB
}

// NewResourceRepository creates a new ResourceRepository.
func NewResourceRepository(db *gorm.DB) *resourceRepo {
	return &resourceRepo{db: db}
}

// CreateSnapshot persists one history sample.
func (r *resourceRepo) CreateSnapshot(ctx context.Context, snapshot *models.ResourceSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("creating resource snapshot: %w", err)
	}
	return nil
}

// GetSnapshotsSince retrieves samples newer than the cutoff, oldest first.
func (r *resourceRepo) GetSnapshotsSince(ctx context.Context, since time.Time) ([]*models.ResourceSnapshot, error) {
	var snapshots []*models.ResourceSnapshot
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("getting resource snapshots: %w", err)
	}
	return snapshots, nil
}

// PruneSnapshots deletes samples older than the cutoff, returning the count.
func (r *resourceRepo) PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.ResourceSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning resource snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CreateAlert persists one threshold breach.
func (r *resourceRepo) CreateAlert(ctx context.Context, alert *models.ResourceAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("creating resource alert: %w", err)
	}
	return nil
}

// GetAlertsSince retrieves alerts newer than the cutoff, newest first.
func (r *resourceRepo) GetAlertsSince(ctx context.Context, since time.Time) ([]*models.ResourceAlert, error) {
	var alerts []*models.ResourceAlert
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("getting resource alerts: %w", err)
	}
	return alerts, nil
}

// PruneAlerts deletes alerts older than the cutoff, returning the count.
func (r *resourceRepo) PruneAlerts(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.ResourceAlert{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning resource alerts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ensure resourceRepo implements ResourceRepository at compile time.
var _ ResourceRepository = (*resourceRepo)(nil)
