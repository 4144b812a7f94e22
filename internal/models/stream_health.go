package models

import (
	"gorm.io/gorm"
)

// DetectionMethod records which probe stage produced a health result.
type DetectionMethod string

const (
	// DetectionMethodHTTP is the fast reachability probe.
	DetectionMethodHTTP DetectionMethod = "http"
	// DetectionMethodHLS is manifest parsing of an M3U8 source.
	DetectionMethodHLS DetectionMethod = "hls"
	// DetectionMethodTS is the native MPEG-TS packet scan.
	DetectionMethodTS DetectionMethod = "ts"
	// DetectionMethodFFprobe is the full stream introspection fallback.
	DetectionMethodFFprobe DetectionMethod = "ffprobe"
)

// StreamHealthRecord is one per-channel probe result. Records are append-only
// and pruned beyond the uptime lookback window; rolling uptime is
// available/total over that window.
type StreamHealthRecord struct {
	BaseModel

	// ChannelID is the probed channel.
	ChannelID ULID `gorm:"type:varchar(26);not null;index:idx_health_channel_time" json:"channel_id"`

	// Available reports whether the probe succeeded.
	Available bool `gorm:"not null;index" json:"available"`

	// ResponseTimeMs is how long the successful probe stage took.
	ResponseTimeMs int64 `gorm:"default:0" json:"response_time_ms"`

	// StatusCode is the HTTP status when the HTTP stage answered, 0 otherwise.
	StatusCode int `gorm:"default:0" json:"status_code,omitempty"`

	// Method is the probe stage that decided the result.
	Method DetectionMethod `gorm:"not null;size:10" json:"method"`

	// ErrorMessage captures why an unavailable probe failed.
	ErrorMessage string `gorm:"size:1024" json:"error_message,omitempty"`

	// CheckedAt is the probe timestamp, indexed for window queries.
	CheckedAt Time `gorm:"not null;index:idx_health_channel_time" json:"checked_at"`
}

// TableName returns the table name for StreamHealthRecord.
func (StreamHealthRecord) TableName() string {
	return "stream_health_records"
}

// Validate performs basic validation on the record.
func (r *StreamHealthRecord) Validate() error {
	if r.ChannelID.IsZero() {
		return ErrChannelIDRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the record and generates ULID.
func (r *StreamHealthRecord) BeforeCreate(tx *gorm.DB) error {
	if err := r.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if r.CheckedAt.IsZero() {
		r.CheckedAt = Now()
	}
	return r.Validate()
}
