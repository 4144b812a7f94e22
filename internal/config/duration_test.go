package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationExtendedUnits(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"24h", 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1w2d12h", 9*24*time.Hour + 12*time.Hour},
	}
	for _, c := range cases {
		d, err := ParseDuration(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, d.Duration(), c.in)
	}

	_, err := ParseDuration("5 fortnights")
	assert.Error(t, err)
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"2w"`), &d))
	assert.Equal(t, 14*24*time.Hour, d.Duration())

	// Bare nanoseconds still decode.
	require.NoError(t, json.Unmarshal([]byte(`60000000000`), &d))
	assert.Equal(t, time.Minute, d.Duration())

	out, err := json.Marshal(Duration(9 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, `"1w2d"`, string(out))
}

func TestDurationString(t *testing.T) {
	assert.Equal(t, "2w", Duration(14*24*time.Hour).String())
	assert.Equal(t, "3d", Duration(3*24*time.Hour).String())
	assert.Equal(t, "12h", Duration(12*time.Hour).String())
	assert.Equal(t, "5m", Duration(5*time.Minute).String())
	assert.Equal(t, "0s", Duration(0).String())
}
