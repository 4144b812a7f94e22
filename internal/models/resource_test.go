package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorstHealthLevel(t *testing.T) {
	tests := []struct {
		name     string
		levels   []HealthLevel
		expected HealthLevel
	}{
		{"all healthy", []HealthLevel{HealthLevelHealthy, HealthLevelHealthy, HealthLevelHealthy}, HealthLevelHealthy},
		{"one warning", []HealthLevel{HealthLevelHealthy, HealthLevelWarning, HealthLevelHealthy}, HealthLevelWarning},
		{"critical wins", []HealthLevel{HealthLevelWarning, HealthLevelCritical, HealthLevelHealthy}, HealthLevelCritical},
		{"empty defaults healthy", nil, HealthLevelHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WorstHealthLevel(tt.levels...))
		})
	}
}

func TestResourceSnapshot_MemoryPercent(t *testing.T) {
	s := ResourceSnapshot{MemoryUsedBytes: 4 << 30, MemoryTotalBytes: 16 << 30}
	assert.InDelta(t, 25.0, s.MemoryPercent(), 0.01)

	empty := ResourceSnapshot{}
	assert.Zero(t, empty.MemoryPercent())
}
