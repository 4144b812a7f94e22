package models

import (
	"gorm.io/gorm"
)

// JobStatus represents the current status of a transcoding job.
type JobStatus string

const (
	// JobStatusStarting indicates the process was spawned but not yet
	// confirmed alive.
	JobStatusStarting JobStatus = "starting"
	// JobStatusRunning indicates the encoder is confirmed running.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the process exited with code 0.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the process exited nonzero or hit an OS error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusStopped indicates the job was terminated on request.
	JobStatusStopped JobStatus = "stopped"
)

// IsActive returns true while a live process is expected for the job.
func (s JobStatus) IsActive() bool {
	return s == JobStatusStarting || s == JobStatusRunning
}

// IsTerminal returns true once the job reached a final status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusStopped
}

// TranscodingJob records one encoder invocation for a channel. A row is
// created when a start is attempted and closed with a terminal status when the
// process exits or is killed. At most one active job exists per channel.
type TranscodingJob struct {
	BaseModel

	// ChannelID is the channel this job transcodes.
	ChannelID ULID `gorm:"type:varchar(26);not null;index" json:"channel_id"`

	// ProfileID is the profile the invocation was built from.
	ProfileID ULID `gorm:"type:varchar(26);not null;index" json:"profile_id"`

	// PID is the OS process id of the encoder, 0 before spawn succeeds.
	PID int `gorm:"default:0" json:"pid"`

	// OutputDir is the channel-scoped directory the encoder writes into.
	OutputDir string `gorm:"not null;size:1024" json:"output_dir"`

	// PlaylistPath is the path of the HLS manifest inside OutputDir.
	PlaylistPath string `gorm:"size:1024" json:"playlist_path"`

	// Status is the job lifecycle state.
	Status JobStatus `gorm:"not null;default:'starting';size:20;index" json:"status"`

	// ErrorMessage captures the failure reason for failed jobs.
	ErrorMessage string `gorm:"size:4096" json:"error_message,omitempty"`

	// ExitCode is the process exit code, valid once the job is terminal.
	ExitCode *int `json:"exit_code,omitempty"`

	// IsRetry marks jobs started by the fallback or recovery machinery;
	// retries get reconnect robustness flags added to the invocation.
	IsRetry bool `gorm:"default:false" json:"is_retry"`

	// ErrorCount is the number of classified stderr errors observed over the
	// job's lifetime, persisted at close for diagnostics.
	ErrorCount int `gorm:"default:0" json:"error_count"`

	// StartedAt is when the process was spawned.
	StartedAt *Time `json:"started_at,omitempty"`

	// EndedAt is when the job reached a terminal status.
	EndedAt *Time `json:"ended_at,omitempty"`

	// Channel is the relationship back to the channel.
	Channel *Channel `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`

	// Profile is the relationship to the profile used.
	Profile *TranscodingProfile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// TableName returns the table name for TranscodingJob.
func (TranscodingJob) TableName() string {
	return "transcoding_jobs"
}

// Validate performs basic validation on the job.
func (j *TranscodingJob) Validate() error {
	if j.ChannelID.IsZero() {
		return ErrChannelIDRequired
	}
	if j.ProfileID.IsZero() {
		return ErrProfileIDRequired
	}
	if j.OutputDir == "" {
		return ErrOutputPathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the job and generates ULID.
func (j *TranscodingJob) BeforeCreate(tx *gorm.DB) error {
	if err := j.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if j.Status == "" {
		j.Status = JobStatusStarting
	}
	return j.Validate()
}

// MarkRunning promotes the job once the delayed confirmation finds the
// process still alive.
func (j *TranscodingJob) MarkRunning() {
	j.Status = JobStatusRunning
}

// MarkCompleted closes the job after a clean (code 0) exit.
func (j *TranscodingJob) MarkCompleted() {
	j.Status = JobStatusCompleted
	code := 0
	j.ExitCode = &code
	now := Now()
	j.EndedAt = &now
}

// MarkFailed closes the job with the failure reason and exit code (-1 when
// the process never ran).
func (j *TranscodingJob) MarkFailed(exitCode int, message string) {
	j.Status = JobStatusFailed
	j.ExitCode = &exitCode
	j.ErrorMessage = message
	now := Now()
	j.EndedAt = &now
}

// MarkStopped closes the job after a requested termination.
func (j *TranscodingJob) MarkStopped() {
	j.Status = JobStatusStopped
	now := Now()
	j.EndedAt = &now
}
