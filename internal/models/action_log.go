package models

import (
	"gorm.io/gorm"
)

// ActionActor identifies what initiated a logged action.
type ActionActor string

const (
	// ActorSystem is an action taken by the orchestrator itself.
	ActorSystem ActionActor = "system"
	// ActorAPI is an action requested through the admin API or CLI.
	ActorAPI ActionActor = "api"
)

// Action names for the audit log. Every state transition writes exactly one
// entry in the same logical operation as the transition itself.
const (
	ActionJobStart         = "job_start"
	ActionJobConfirm       = "job_confirm"
	ActionJobStop          = "job_stop"
	ActionJobRestart       = "job_restart"
	ActionJobFail          = "job_fail"
	ActionJobComplete      = "job_complete"
	ActionFallback         = "fallback"
	ActionDeadSource       = "dead_source"
	ActionRecoveryAttempt  = "recovery_attempt"
	ActionOfflinePermanent = "offline_permanent"
	ActionManualRetry      = "manual_retry"
	ActionBulkStart        = "bulk_start"
	ActionBulkStop         = "bulk_stop"
	ActionEmergencyStop    = "emergency_stop"
	ActionMigration        = "migration"
	ActionWatchdogRestart  = "watchdog_restart"
	ActionStaleRecovery    = "stale_recovery"
	ActionImport           = "import"
)

// ActionLog is the append-only audit trail of orchestrator state transitions.
type ActionLog struct {
	BaseModel

	// Actor is who initiated the action.
	Actor ActionActor `gorm:"not null;size:10" json:"actor"`

	// Action is one of the Action* constants.
	Action string `gorm:"not null;size:50;index" json:"action"`

	// ChannelID is the affected channel, zero for fleet-wide actions.
	ChannelID ULID `gorm:"type:varchar(26);index" json:"channel_id,omitempty"`

	// Detail is free-form context (profile names, error text, counts).
	Detail string `gorm:"size:2048" json:"detail,omitempty"`
}

// TableName returns the table name for ActionLog.
func (ActionLog) TableName() string {
	return "action_logs"
}

// Validate performs basic validation on the entry.
func (l *ActionLog) Validate() error {
	if l.Action == "" {
		return ErrActionRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the entry and generates ULID.
func (l *ActionLog) BeforeCreate(tx *gorm.DB) error {
	if err := l.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if l.Actor == "" {
		l.Actor = ActorSystem
	}
	return l.Validate()
}
