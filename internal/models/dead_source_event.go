package models

import (
	"time"

	"gorm.io/gorm"
)

// DeadSourceEvent records one dead-source detection: the channel produced
// repeated matching errors while already at the bottom of the profile ladder.
// The recovery scheduler reads these rows to decide between retry and
// permanent quarantine.
type DeadSourceEvent struct {
	BaseModel

	// ChannelID is the quarantined channel.
	ChannelID ULID `gorm:"type:varchar(26);not null;index" json:"channel_id"`

	// ErrorPattern is the aggregated stderr signature text that triggered
	// the detection.
	ErrorPattern string `gorm:"not null;size:2048" json:"error_pattern"`

	// ProfileTier is the ladder position at detection time. Detection only
	// fires at the bottom (copy), recorded for diagnostics.
	ProfileTier ProfileTier `gorm:"size:10" json:"profile_tier"`

	// CooldownUntil is when the scheduled recovery attempt fires.
	CooldownUntil Time `gorm:"not null;index" json:"cooldown_until"`

	// RetryCount is the number of automatic recovery attempts made before
	// this detection.
	RetryCount int `gorm:"default:0" json:"retry_count"`

	// Resolved marks events whose channel recovered or was manually retried.
	Resolved bool `gorm:"default:false;index" json:"resolved"`

	// Channel is the relationship back to the channel.
	Channel *Channel `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
}

// TableName returns the table name for DeadSourceEvent.
func (DeadSourceEvent) TableName() string {
	return "dead_source_events"
}

// Validate performs basic validation on the event.
func (e *DeadSourceEvent) Validate() error {
	if e.ChannelID.IsZero() {
		return ErrChannelIDRequired
	}
	if e.ErrorPattern == "" {
		return ErrPatternRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the event and generates ULID.
func (e *DeadSourceEvent) BeforeCreate(tx *gorm.DB) error {
	if err := e.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return e.Validate()
}

// CooldownRemaining returns how long until the recovery attempt, zero when due.
func (e *DeadSourceEvent) CooldownRemaining(now time.Time) time.Duration {
	if !e.CooldownUntil.After(now) {
		return 0
	}
	return e.CooldownUntil.Sub(now)
}
