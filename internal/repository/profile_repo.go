package repository

import (
	"context"
	"fmt"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// profileRepo implements ProfileRepository using GORM.
type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *gorm.DB) *profileRepo {
	return &profileRepo{db: db}
}

// Create creates a new profile.
func (r *profileRepo) Create(ctx context.Context, profile *models.TranscodingProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID.
func (r *profileRepo) GetByID(ctx context.Context, id models.ULID) (*models.TranscodingProfile, error) {
	var profile models.TranscodingProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting profile by ID: %w", err)
	}
	return &profile, nil
}

// GetByName retrieves a profile by its unique name.
func (r *profileRepo) GetByName(ctx context.Context, name string) (*models.TranscodingProfile, error) {
	var profile models.TranscodingProfile
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting profile by name: %w", err)
	}
	return &profile, nil
}

// GetAll retrieves all profiles.
func (r *profileRepo) GetAll(ctx context.Context) ([]*models.TranscodingProfile, error) {
	var profiles []*models.TranscodingProfile
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("getting all profiles: %w", err)
	}
	return profiles, nil
}

// GetDefault retrieves the profile marked as default, nil if none.
func (r *profileRepo) GetDefault(ctx context.Context) (*models.TranscodingProfile, error) {
	var profile models.TranscodingProfile
	if err := r.db.WithContext(ctx).Where("is_default = ?", true).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting default profile: %w", err)
	}
	return &profile, nil
}

// GetEnabledByTier retrieves enabled profiles at the given tier, ordered by
// name for deterministic fallback selection.
func (r *profileRepo) GetEnabledByTier(ctx context.Context, tier models.ProfileTier) ([]*models.TranscodingProfile, error) {
	var profiles []*models.TranscodingProfile
	if err := r.db.WithContext(ctx).
		Where("tier = ? AND (enabled = ? OR enabled IS NULL)", tier, true).
		Order("name ASC").
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("getting profiles by tier: %w", err)
	}
	return profiles, nil
}

// SetDefault marks the profile as default and clears the flag elsewhere,
// atomically.
func (r *profileRepo) SetDefault(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TranscodingProfile{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return fmt.Errorf("clearing default profiles: %w", err)
		}
		res := tx.Model(&models.TranscodingProfile{}).
			Where("id = ?", id).
			Update("is_default", true)
		if res.Error != nil {
			return fmt.Errorf("setting default profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Update updates an existing profile.
func (r *profileRepo) Update(ctx context.Context, profile *models.TranscodingProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// Delete deletes a profile by ID.
func (r *profileRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TranscodingProfile{}).Error; err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}

// Ensure profileRepo implements ProfileRepository at compile time.
var _ ProfileRepository = (*profileRepo)(nil)
