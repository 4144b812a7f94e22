package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"gorm.io/gorm"
)

// activeJobStatuses are the statuses with a live process attached.
var activeJobStatuses = []models.JobStatus{models.JobStatusStarting, models.JobStatusRunning}

// jobRepo implements JobRepository using GORM.
type jobRepo struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *jobRepo {
	return &jobRepo{db: db}
}

// Create creates a new job record.
func (r *jobRepo) Create(ctx context.Context, job *models.TranscodingJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID.
func (r *jobRepo) GetByID(ctx context.Context, id models.ULID) (*models.TranscodingJob, error) {
	var job models.TranscodingJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting job by ID: %w", err)
	}
	return &job, nil
}

// GetActive retrieves jobs in starting or running status.
func (r *jobRepo) GetActive(ctx context.Context) ([]*models.TranscodingJob, error) {
	var jobs []*models.TranscodingJob
	if err := r.db.WithContext(ctx).
		Where("status IN ?", activeJobStatuses).
		Order("started_at ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting active jobs: %w", err)
	}
	return jobs, nil
}

// GetActiveByChannel retrieves the channel's active job, nil if none.
func (r *jobRepo) GetActiveByChannel(ctx context.Context, channelID models.ULID) (*models.TranscodingJob, error) {
	var job models.TranscodingJob
	if err := r.db.WithContext(ctx).
		Where("channel_id = ? AND status IN ?", channelID, activeJobStatuses).
		Order("created_at DESC").
		First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting active job for channel: %w", err)
	}
	return &job, nil
}

// GetByChannelPaginated retrieves a channel's job history, newest first.
func (r *jobRepo) GetByChannelPaginated(ctx context.Context, channelID models.ULID, offset, limit int) ([]*models.TranscodingJob, int64, error) {
	var jobs []*models.TranscodingJob
	var total int64

	if err := r.db.WithContext(ctx).
		Model(&models.TranscodingJob{}).
		Where("channel_id = ?", channelID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting jobs for channel: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("getting jobs for channel: %w", err)
	}

	return jobs, total, nil
}

// GetAllPaginated retrieves jobs newest first.
func (r *jobRepo) GetAllPaginated(ctx context.Context, offset, limit int) ([]*models.TranscodingJob, int64, error) {
	var jobs []*models.TranscodingJob
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.TranscodingJob{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting jobs: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("getting paginated jobs: %w", err)
	}

	return jobs, total, nil
}

// Update updates an existing job.
func (r *jobRepo) Update(ctx context.Context, job *models.TranscodingJob) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	return nil
}

// CountActive returns the number of active jobs.
func (r *jobRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TranscodingJob{}).
		Where("status IN ?", activeJobStatuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting active jobs: %w", err)
	}
	return count, nil
}

// Prune deletes terminal jobs older than the cutoff, returning the count.
func (r *jobRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status NOT IN ? AND created_at < ?", activeJobStatuses, olderThan).
		Delete(&models.TranscodingJob{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ensure jobRepo implements JobRepository at compile time.
var _ JobRepository = (*jobRepo)(nil)
