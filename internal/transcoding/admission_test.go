package transcoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

func TestLimitFor(t *testing.T) {
	limits := config.TierLimitsConfig{Copy: 20, Low: 8, Medium: 4, High: 2}

	assert.Equal(t, 20, LimitFor(limits, models.TierCopy))
	assert.Equal(t, 8, LimitFor(limits, models.TierLow))
	assert.Equal(t, 4, LimitFor(limits, models.TierMedium))
	assert.Equal(t, 2, LimitFor(limits, models.TierHigh))
	assert.Equal(t, 0, LimitFor(limits, models.ProfileTier("bogus")))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		current int
		limit   int
		allowed bool
	}{
		{"below limit", 0, 2, true},
		{"one slot left", 1, 2, true},
		{"at limit", 2, 2, false},
		{"over limit", 3, 2, false},
		{"zero limit disables tier", 0, 0, false},
		{"negative limit disables tier", 0, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decide(models.TierMedium, tt.current, tt.limit)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, models.TierMedium, d.Tier)
			assert.Equal(t, tt.current, d.Current)
			assert.Equal(t, tt.limit, d.Max)
		})
	}
}

func TestAdmission_CheckTracksRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewAdmission(config.TierLimitsConfig{Copy: 2, Low: 1, Medium: 1, High: 0}, r)

	d := a.Check(models.TierCopy)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Current)

	require.NoError(t, r.Admit(newTestSession(models.TierCopy), 2, false))
	require.NoError(t, r.Admit(newTestSession(models.TierCopy), 2, false))

	d = a.Check(models.TierCopy)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.Current)
	assert.Equal(t, 2, d.Max)

	// A tier configured to zero is always full.
	d = a.Check(models.TierHigh)
	assert.False(t, d.Allowed)
}

func TestAdmission_OccupancyCheapestFirst(t *testing.T) {
	r := NewRegistry()
	a := NewAdmission(config.TierLimitsConfig{Copy: 20, Low: 8, Medium: 4, High: 2}, r)
	require.NoError(t, r.Admit(newTestSession(models.TierLow), 8, false))

	occ := a.Occupancy()
	require.Len(t, occ, 4)
	assert.Equal(t, models.TierCopy, occ[0].Tier)
	assert.Equal(t, models.TierLow, occ[1].Tier)
	assert.Equal(t, models.TierMedium, occ[2].Tier)
	assert.Equal(t, models.TierHigh, occ[3].Tier)

	assert.Equal(t, 1, occ[1].Current)
	assert.Equal(t, 8, occ[1].Max)
	assert.Equal(t, 0, occ[0].Current)
}
