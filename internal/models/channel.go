package models

import (
	"strings"

	"gorm.io/gorm"
)

// TranscodingStatus represents the lifecycle state of a channel's encoder job.
type TranscodingStatus string

const (
	// TranscodingStatusInactive indicates no encoder job exists for the channel.
	TranscodingStatusInactive TranscodingStatus = "inactive"
	// TranscodingStatusStarting indicates an encoder process was spawned but is
	// not yet confirmed alive.
	TranscodingStatusStarting TranscodingStatus = "starting"
	// TranscodingStatusActive indicates the encoder is running and the output
	// URL is published.
	TranscodingStatusActive TranscodingStatus = "active"
	// TranscodingStatusStopping indicates a stop was requested and the process
	// is being torn down.
	TranscodingStatusStopping TranscodingStatus = "stopping"
	// TranscodingStatusFailed indicates the encoder exited unexpectedly.
	TranscodingStatusFailed TranscodingStatus = "failed"
	// TranscodingStatusOfflineTemporary indicates the source was declared dead
	// and a recovery retry is scheduled after the cooldown.
	TranscodingStatusOfflineTemporary TranscodingStatus = "offline_temporary"
	// TranscodingStatusOfflinePermanent indicates recovery retries were
	// exhausted; only a manual retry clears this state.
	TranscodingStatusOfflinePermanent TranscodingStatus = "offline_permanent"
)

// IsValid returns true if this is a recognized transcoding status.
func (s TranscodingStatus) IsValid() bool {
	switch s {
	case TranscodingStatusInactive, TranscodingStatusStarting, TranscodingStatusActive,
		TranscodingStatusStopping, TranscodingStatusFailed,
		TranscodingStatusOfflineTemporary, TranscodingStatusOfflinePermanent:
		return true
	default:
		return false
	}
}

// IsTransient returns true for states that must resolve to a rest state.
func (s TranscodingStatus) IsTransient() bool {
	return s == TranscodingStatusStarting || s == TranscodingStatusStopping
}

// IsLive returns true if a process is expected to exist for this status.
func (s TranscodingStatus) IsLive() bool {
	return s == TranscodingStatusStarting || s == TranscodingStatusActive
}

// IsOffline returns true for the quarantine states.
func (s TranscodingStatus) IsOffline() bool {
	return s == TranscodingStatusOfflineTemporary || s == TranscodingStatusOfflinePermanent
}

// StreamHealthStatus classifies the source stream's probed availability.
type StreamHealthStatus string

const (
	// StreamHealthUnknown indicates the channel has not been probed yet.
	StreamHealthUnknown StreamHealthStatus = "unknown"
	// StreamHealthHealthy indicates recent probes succeeded.
	StreamHealthHealthy StreamHealthStatus = "healthy"
	// StreamHealthDegraded indicates the source is reachable but uptime over
	// the lookback window is below the healthy threshold.
	StreamHealthDegraded StreamHealthStatus = "degraded"
	// StreamHealthUnavailable indicates the latest probes failed.
	StreamHealthUnavailable StreamHealthStatus = "unavailable"
)

// Channel represents a live channel whose source stream is transcoded to HLS.
//
// The orchestration engine reads identity/URL/profile and writes the status and
// health fields; channel creation and deletion belong to the admin surface.
type Channel struct {
	BaseModel

	// Name is the display name of the channel.
	Name string `gorm:"not null;size:512;index" json:"name"`

	// Number is the channel number if assigned.
	Number int `gorm:"default:0" json:"number,omitempty"`

	// SourceURL is the upstream stream URL to transcode.
	SourceURL string `gorm:"not null;size:4096" json:"source_url"`

	// LogoURL is the URL to the channel logo, if any.
	LogoURL string `gorm:"size:2048" json:"logo_url,omitempty"`

	// Category is the channel grouping (from group-title on import).
	Category string `gorm:"size:255;index" json:"category,omitempty"`

	// TranscodingEnabled marks the channel as managed by the orchestrator.
	// Using pointer to distinguish "not set" (nil->default true) from "explicitly false".
	TranscodingEnabled *bool `gorm:"default:true" json:"transcoding_enabled"`

	// ProfileID references the active transcoding profile. Nil means the
	// default profile is resolved at start time.
	ProfileID *ULID `gorm:"type:varchar(26);index" json:"profile_id,omitempty"`

	// TranscodingStatus is the encoder job lifecycle state.
	TranscodingStatus TranscodingStatus `gorm:"not null;default:'inactive';size:20;index" json:"transcoding_status"`

	// TranscodedURL is the published HLS playlist URL, set when a job is
	// confirmed active and cleared when it stops.
	TranscodedURL string `gorm:"size:2048" json:"transcoded_url,omitempty"`

	// OfflineReason records why the channel was taken offline.
	OfflineReason string `gorm:"size:1024" json:"offline_reason,omitempty"`

	// DeadSourceCount is the number of dead-source detections since the last
	// successful recovery or manual reset.
	DeadSourceCount int `gorm:"default:0" json:"dead_source_count"`

	// LastDeadSourceEvent is the timestamp of the most recent detection.
	LastDeadSourceEvent *Time `json:"last_dead_source_event,omitempty"`

	// StreamHealthStatus is the probed source availability classification.
	StreamHealthStatus StreamHealthStatus `gorm:"not null;default:'unknown';size:20" json:"stream_health_status"`

	// LastHealthCheck is the timestamp of the most recent probe.
	LastHealthCheck *Time `json:"last_health_check,omitempty"`

	// AvgResponseTimeMs is the mean probe response time over the lookback window.
	AvgResponseTimeMs int64 `gorm:"default:0" json:"avg_response_time_ms"`

	// UptimePercentage is available/total probes over the lookback window.
	UptimePercentage float64 `gorm:"default:0" json:"uptime_percentage"`

	// Profile is the relationship to the active transcoding profile.
	Profile *TranscodingProfile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// TableName returns the table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// IsTranscodingEnabled returns the effective enabled flag.
func (c *Channel) IsTranscodingEnabled() bool {
	return BoolVal(c.TranscodingEnabled)
}

// Validate performs basic validation on the channel.
func (c *Channel) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.SourceURL == "" {
		return ErrSourceURLRequired
	}
	if !strings.Contains(c.SourceURL, "://") {
		return ErrInvalidURL
	}
	if c.TranscodingStatus != "" && !c.TranscodingStatus.IsValid() {
		return ErrInvalidTranscodingStatus
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the channel and generates ULID.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if c.TranscodingStatus == "" {
		c.TranscodingStatus = TranscodingStatusInactive
	}
	if c.StreamHealthStatus == "" {
		c.StreamHealthStatus = StreamHealthUnknown
	}
	return c.Validate()
}

// BeforeUpdate is a GORM hook that validates the channel before update.
func (c *Channel) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}
