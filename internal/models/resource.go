package models

import (
	"gorm.io/gorm"
)

// HealthLevel classifies a sampled metric against its thresholds.
type HealthLevel string

const (
	// HealthLevelHealthy indicates the metric is below the warning threshold.
	HealthLevelHealthy HealthLevel = "healthy"
	// HealthLevelWarning indicates the metric crossed the warning threshold.
	HealthLevelWarning HealthLevel = "warning"
	// HealthLevelCritical indicates the metric crossed the critical threshold.
	HealthLevelCritical HealthLevel = "critical"
)

// Severity orders levels so the overall health can take the worst of several.
func (l HealthLevel) Severity() int {
	switch l {
	case HealthLevelCritical:
		return 2
	case HealthLevelWarning:
		return 1
	default:
		return 0
	}
}

// WorstHealthLevel returns the most severe of the given levels.
func WorstHealthLevel(levels ...HealthLevel) HealthLevel {
	worst := HealthLevelHealthy
	for _, l := range levels {
		if l.Severity() > worst.Severity() {
			worst = l
		}
	}
	return worst
}

// AlertType identifies which metric an alert concerns.
type AlertType string

const (
	// AlertTypeCPU is a CPU usage breach.
	AlertTypeCPU AlertType = "cpu"
	// AlertTypeMemory is a memory usage breach.
	AlertTypeMemory AlertType = "memory"
	// AlertTypeDisk is a disk usage breach.
	AlertTypeDisk AlertType = "disk"
)

// ResourceSnapshot is one host-health sample. A configured fraction of
// samples persist as history; the rest exist only in memory.
type ResourceSnapshot struct {
	BaseModel

	// CPUPercent is the orchestrator process CPU usage averaged over the
	// rolling sample set.
	CPUPercent float64 `gorm:"not null" json:"cpu_percent"`

	// MemoryUsedBytes and MemoryTotalBytes describe system memory.
	MemoryUsedBytes  uint64 `gorm:"not null" json:"memory_used_bytes"`
	MemoryTotalBytes uint64 `gorm:"not null" json:"memory_total_bytes"`

	// DiskUsedBytes, DiskTotalBytes and DiskPercent describe the output root
	// filesystem.
	DiskUsedBytes  uint64  `gorm:"not null" json:"disk_used_bytes"`
	DiskTotalBytes uint64  `gorm:"not null" json:"disk_total_bytes"`
	DiskPercent    float64 `gorm:"not null" json:"disk_percent"`

	// OverallHealth is the worst of the three metric classifications.
	OverallHealth HealthLevel `gorm:"not null;size:10" json:"overall_health"`

	// ActiveJobs is the live-job count at sample time.
	ActiveJobs int `gorm:"default:0" json:"active_jobs"`
}

// TableName returns the table name for ResourceSnapshot.
func (ResourceSnapshot) TableName() string {
	return "resource_snapshots"
}

// MemoryPercent returns used memory as a percentage of total.
func (s *ResourceSnapshot) MemoryPercent() float64 {
	if s.MemoryTotalBytes == 0 {
		return 0
	}
	return float64(s.MemoryUsedBytes) / float64(s.MemoryTotalBytes) * 100
}

// ResourceAlert is a rate-limited threshold breach. At most one alert per
// type is raised within the cooldown window regardless of how many sampling
// cycles observe the breach.
type ResourceAlert struct {
	BaseModel

	// Type is the metric that breached.
	Type AlertType `gorm:"not null;size:10;index" json:"type"`

	// Level is warning or critical.
	Level HealthLevel `gorm:"not null;size:10" json:"level"`

	// Value is the sampled metric value at breach time (percent).
	Value float64 `gorm:"not null" json:"value"`

	// Threshold is the configured limit that was crossed.
	Threshold float64 `gorm:"not null" json:"threshold"`

	// Message is the human-readable alert text.
	Message string `gorm:"size:1024" json:"message"`
}

// TableName returns the table name for ResourceAlert.
func (ResourceAlert) TableName() string {
	return "resource_alerts"
}

// BeforeCreate is a GORM hook that generates the ULID.
func (a *ResourceAlert) BeforeCreate(tx *gorm.DB) error {
	return a.BaseModel.BeforeCreate(tx)
}
