package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileTier_NextLower(t *testing.T) {
	tests := []struct {
		tier     ProfileTier
		expected ProfileTier
		ok       bool
	}{
		{TierHigh, TierMedium, true},
		{TierMedium, TierLow, true},
		{TierLow, TierCopy, true},
		{TierCopy, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			next, ok := tt.tier.NextLower()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestProfileTier_Rank(t *testing.T) {
	assert.Equal(t, 0, TierCopy.Rank())
	assert.Equal(t, 1, TierLow.Rank())
	assert.Equal(t, 2, TierMedium.Rank())
	assert.Equal(t, 3, TierHigh.Rank())
	assert.Equal(t, -1, ProfileTier("bogus").Rank())
}

func TestTranscodingProfile_DeriveTier(t *testing.T) {
	tests := []struct {
		name     string
		profile  TranscodingProfile
		expected ProfileTier
	}{
		{
			name: "pass-through is copy",
			profile: TranscodingProfile{
				VideoCodec: VideoCodecCopy,
				AudioCodec: AudioCodecCopy,
			},
			expected: TierCopy,
		},
		{
			name: "480p is low",
			profile: TranscodingProfile{
				VideoCodec: VideoCodecH264,
				AudioCodec: AudioCodecAAC,
				Resolution: "854x480",
			},
			expected: TierLow,
		},
		{
			name: "720p is medium",
			profile: TranscodingProfile{
				VideoCodec: VideoCodecH264,
				AudioCodec: AudioCodecAAC,
				Resolution: "1280x720",
			},
			expected: TierMedium,
		},
		{
			name: "1080p is high",
			profile: TranscodingProfile{
				VideoCodec: VideoCodecH264,
				AudioCodec: AudioCodecAAC,
				Resolution: "1920x1080",
			},
			expected: TierHigh,
		},
		{
			name: "no resolution counts as high",
			profile: TranscodingProfile{
				VideoCodec: VideoCodecH264,
				AudioCodec: AudioCodecAAC,
			},
			expected: TierHigh,
		},
		{
			name: "copy video with encoded audio still encodes",
			profile: TranscodingProfile{
				VideoCodec: VideoCodecCopy,
				AudioCodec: AudioCodecAAC,
				Resolution: "854x480",
			},
			expected: TierLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.profile.DeriveTier())
		})
	}
}

func TestTranscodingProfile_Validate(t *testing.T) {
	valid := func() TranscodingProfile {
		return TranscodingProfile{
			Name:       "sd",
			VideoCodec: VideoCodecH264,
			AudioCodec: AudioCodecAAC,
			Resolution: "854x480",
			HLSTime:    4,
			HLSListSize: 6,
		}
	}

	t.Run("valid profile", func(t *testing.T) {
		p := valid()
		assert.NoError(t, p.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		p := valid()
		p.Name = ""
		assert.ErrorIs(t, p.Validate(), ErrProfileNameRequired)
	})

	t.Run("bad video codec", func(t *testing.T) {
		p := valid()
		p.VideoCodec = "vp9"
		assert.ErrorIs(t, p.Validate(), ErrProfileInvalidVideoCodec)
	})

	t.Run("bad audio codec", func(t *testing.T) {
		p := valid()
		p.AudioCodec = "flac"
		assert.ErrorIs(t, p.Validate(), ErrProfileInvalidAudioCodec)
	})

	t.Run("bad resolution", func(t *testing.T) {
		p := valid()
		p.Resolution = "480p"
		assert.ErrorIs(t, p.Validate(), ErrProfileInvalidResolution)
	})

	t.Run("segment time out of range", func(t *testing.T) {
		p := valid()
		p.HLSTime = 30
		assert.ErrorIs(t, p.Validate(), ErrProfileInvalidSegmentTime)
	})

	t.Run("list size out of range", func(t *testing.T) {
		p := valid()
		p.HLSListSize = 100
		assert.ErrorIs(t, p.Validate(), ErrProfileInvalidListSize)
	})
}

func TestTranscodingProfile_BeforeCreate(t *testing.T) {
	t.Run("fills defaults and derives tier", func(t *testing.T) {
		p := &TranscodingProfile{Name: "default", Resolution: "1280x720"}
		err := p.BeforeCreate(nil)
		require.NoError(t, err)
		assert.False(t, p.ID.IsZero())
		assert.Equal(t, VideoCodecH264, p.VideoCodec)
		assert.Equal(t, AudioCodecAAC, p.AudioCodec)
		assert.Equal(t, 4, p.HLSTime)
		assert.Equal(t, 6, p.HLSListSize)
		assert.Equal(t, TierMedium, p.Tier)
	})

	t.Run("explicit tier is preserved", func(t *testing.T) {
		p := &TranscodingProfile{Name: "odd", Resolution: "1280x720", Tier: TierHigh}
		err := p.BeforeCreate(nil)
		require.NoError(t, err)
		assert.Equal(t, TierHigh, p.Tier)
	})
}

func TestTranscodingProfile_ResolutionSize(t *testing.T) {
	p := TranscodingProfile{Resolution: "1920x1080"}
	w, h, ok := p.ResolutionSize()
	require.True(t, ok)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	p.Resolution = ""
	_, _, ok = p.ResolutionSize()
	assert.False(t, ok)
}

func TestTranscodingProfile_Clone(t *testing.T) {
	p := &TranscodingProfile{
		BaseModel:  BaseModel{ID: NewULID()},
		Name:       "hd",
		Tier:       TierHigh,
		Resolution: "1920x1080",
		IsDefault:  true,
	}

	clone := p.Clone()
	assert.True(t, clone.ID.IsZero())
	assert.Empty(t, clone.Name)
	assert.False(t, clone.IsDefault)
	assert.Equal(t, p.Resolution, clone.Resolution)
	assert.Equal(t, p.Tier, clone.Tier)
}
