package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Validate(t *testing.T) {
	tests := []struct {
		name      string
		channel   Channel
		expectErr error
	}{
		{
			name: "valid channel",
			channel: Channel{
				Name:      "News HD",
				SourceURL: "http://source.example.com/news.ts",
			},
			expectErr: nil,
		},
		{
			name:      "missing name",
			channel:   Channel{SourceURL: "http://source.example.com/news.ts"},
			expectErr: ErrNameRequired,
		},
		{
			name:      "missing source url",
			channel:   Channel{Name: "News HD"},
			expectErr: ErrSourceURLRequired,
		},
		{
			name: "source url without scheme",
			channel: Channel{
				Name:      "News HD",
				SourceURL: "source.example.com/news.ts",
			},
			expectErr: ErrInvalidURL,
		},
		{
			name: "bogus status",
			channel: Channel{
				Name:              "News HD",
				SourceURL:         "http://source.example.com/news.ts",
				TranscodingStatus: TranscodingStatus("parked"),
			},
			expectErr: ErrInvalidTranscodingStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.channel.Validate()
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChannel_BeforeCreate(t *testing.T) {
	c := &Channel{
		Name:      "Sports",
		SourceURL: "http://source.example.com/sports.m3u8",
	}

	err := c.BeforeCreate(nil)
	require.NoError(t, err)
	assert.False(t, c.ID.IsZero())
	assert.Equal(t, TranscodingStatusInactive, c.TranscodingStatus)
	assert.Equal(t, StreamHealthUnknown, c.StreamHealthStatus)
}

func TestChannel_IsTranscodingEnabled(t *testing.T) {
	t.Run("nil defaults to enabled", func(t *testing.T) {
		c := &Channel{}
		assert.True(t, c.IsTranscodingEnabled())
	})

	t.Run("explicitly disabled", func(t *testing.T) {
		c := &Channel{TranscodingEnabled: BoolPtr(false)}
		assert.False(t, c.IsTranscodingEnabled())
	})
}

func TestTranscodingStatus_Classification(t *testing.T) {
	tests := []struct {
		status    TranscodingStatus
		transient bool
		live      bool
		offline   bool
	}{
		{TranscodingStatusInactive, false, false, false},
		{TranscodingStatusStarting, true, true, false},
		{TranscodingStatusActive, false, true, false},
		{TranscodingStatusStopping, true, false, false},
		{TranscodingStatusFailed, false, false, false},
		{TranscodingStatusOfflineTemporary, false, false, true},
		{TranscodingStatusOfflinePermanent, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.IsValid())
			assert.Equal(t, tt.transient, tt.status.IsTransient())
			assert.Equal(t, tt.live, tt.status.IsLive())
			assert.Equal(t, tt.offline, tt.status.IsOffline())
		})
	}
}
