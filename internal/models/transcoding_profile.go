package models

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// ProfileTier is the coarse quality bucket used for concurrency admission and
// the fallback ladder. It is assigned when the profile is created so that no
// decision-time string inspection of codecs or resolutions is ever needed.
type ProfileTier string

const (
	// TierCopy is pass-through remuxing with no re-encode.
	TierCopy ProfileTier = "copy"
	// TierLow is encodes up to 480p.
	TierLow ProfileTier = "low"
	// TierMedium is encodes up to 720p.
	TierMedium ProfileTier = "medium"
	// TierHigh is anything above 720p.
	TierHigh ProfileTier = "high"
)

// IsValid returns true if this is a recognized tier.
func (t ProfileTier) IsValid() bool {
	switch t {
	case TierCopy, TierLow, TierMedium, TierHigh:
		return true
	default:
		return false
	}
}

// Rank orders tiers by resource cost: copy=0 up to high=3.
func (t ProfileTier) Rank() int {
	switch t {
	case TierCopy:
		return 0
	case TierLow:
		return 1
	case TierMedium:
		return 2
	case TierHigh:
		return 3
	default:
		return -1
	}
}

// NextLower returns the tier one step down the fallback ladder and false when
// already at the bottom (copy).
func (t ProfileTier) NextLower() (ProfileTier, bool) {
	switch t {
	case TierHigh:
		return TierMedium, true
	case TierMedium:
		return TierLow, true
	case TierLow:
		return TierCopy, true
	default:
		return "", false
	}
}

// AllTiers returns every tier ordered from cheapest to most expensive.
func AllTiers() []ProfileTier {
	return []ProfileTier{TierCopy, TierLow, TierMedium, TierHigh}
}

// TranscodingProfile is a named bundle of encoder parameters defining one
// quality tier. Profiles are immutable for the duration of a running job; a
// profile change requires stopping and restarting the job.
type TranscodingProfile struct {
	BaseModel

	// Name is a unique identifier for this profile.
	Name string `gorm:"uniqueIndex;not null;size:100" json:"name"`

	// Description explains what this profile is for.
	Description string `gorm:"size:500" json:"description,omitempty"`

	// Tier is the admission/fallback bucket. Derived from codec and
	// resolution at creation time when not set explicitly.
	Tier ProfileTier `gorm:"not null;size:10;index" json:"tier"`

	// VideoCodec is the target video codec ("copy" for pass-through).
	VideoCodec VideoCodec `gorm:"size:20;default:'h264'" json:"video_codec"`

	// AudioCodec is the target audio codec ("copy" for pass-through).
	AudioCodec AudioCodec `gorm:"size:20;default:'aac'" json:"audio_codec"`

	// VideoBitrate is the target video bitrate, ffmpeg rate syntax ("2500k").
	// Empty means unconstrained.
	VideoBitrate string `gorm:"size:20" json:"video_bitrate,omitempty"`

	// AudioBitrate is the target audio bitrate ("128k").
	AudioBitrate string `gorm:"size:20" json:"audio_bitrate,omitempty"`

	// Resolution is the output size as WIDTHxHEIGHT ("1280x720").
	// Empty means keep the source resolution.
	Resolution string `gorm:"size:20" json:"resolution,omitempty"`

	// Preset is the encoder speed/quality preset (ultrafast..slow).
	Preset string `gorm:"size:20;default:'veryfast'" json:"preset,omitempty"`

	// Tune is the encoder tune setting (zerolatency, film, ...).
	Tune string `gorm:"size:20" json:"tune,omitempty"`

	// GopSize is the keyframe interval in frames. 0 lets ffmpeg decide.
	GopSize int `gorm:"default:0" json:"gop_size,omitempty"`

	// HLSTime is the segment duration in seconds.
	HLSTime int `gorm:"default:4" json:"hls_time"`

	// HLSListSize is the number of segments kept in the live playlist.
	HLSListSize int `gorm:"default:6" json:"hls_list_size"`

	// ExtraFlags are additional ffmpeg output flags appended verbatim.
	ExtraFlags string `gorm:"size:1000" json:"extra_flags,omitempty"`

	// IsDefault marks the profile used when a channel has none assigned.
	IsDefault bool `gorm:"default:false;index" json:"is_default"`

	// IsSystem marks seeded profiles that cannot be deleted.
	IsSystem bool `gorm:"default:false" json:"is_system"`

	// Enabled indicates if this profile can be used.
	// Using pointer to distinguish "not set" (nil->default true) from "explicitly false".
	Enabled *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for TranscodingProfile.
func (TranscodingProfile) TableName() string {
	return "transcoding_profiles"
}

// IsEnabled returns the effective enabled flag.
func (p *TranscodingProfile) IsEnabled() bool {
	return BoolVal(p.Enabled)
}

// IsPassThrough returns true when both codecs are copy.
func (p *TranscodingProfile) IsPassThrough() bool {
	return p.VideoCodec.IsCopy() && p.AudioCodec.IsCopy()
}

// ResolutionSize parses the Resolution field. ok is false when the profile
// keeps the source resolution.
func (p *TranscodingProfile) ResolutionSize() (width, height int, ok bool) {
	if p.Resolution == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(strings.ToLower(p.Resolution), "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// DeriveTier computes the admission tier from the profile's parameters.
// Pass-through profiles are copy; encoded profiles bucket by output height,
// with unconstrained resolution counting as high.
func (p *TranscodingProfile) DeriveTier() ProfileTier {
	if p.IsPassThrough() {
		return TierCopy
	}
	_, h, ok := p.ResolutionSize()
	if !ok {
		return TierHigh
	}
	switch {
	case h <= 480:
		return TierLow
	case h <= 720:
		return TierMedium
	default:
		return TierHigh
	}
}

// Validate performs basic validation on the profile.
func (p *TranscodingProfile) Validate() error {
	if p.Name == "" {
		return ErrProfileNameRequired
	}
	if !p.VideoCodec.IsValid() {
		return ErrProfileInvalidVideoCodec
	}
	if !p.AudioCodec.IsValid() {
		return ErrProfileInvalidAudioCodec
	}
	if p.Tier != "" && !p.Tier.IsValid() {
		return ErrProfileInvalidTier
	}
	if p.Resolution != "" {
		if _, _, ok := p.ResolutionSize(); !ok {
			return ErrProfileInvalidResolution
		}
	}
	if p.HLSTime != 0 && (p.HLSTime < 2 || p.HLSTime > 10) {
		return ErrProfileInvalidSegmentTime
	}
	if p.HLSListSize != 0 && (p.HLSListSize < 3 || p.HLSListSize > 20) {
		return ErrProfileInvalidListSize
	}
	return nil
}

// BeforeCreate is a GORM hook that fills defaults, assigns the tier and
// validates the profile.
func (p *TranscodingProfile) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if p.VideoCodec == "" {
		p.VideoCodec = VideoCodecH264
	}
	if p.AudioCodec == "" {
		p.AudioCodec = AudioCodecAAC
	}
	if p.HLSTime == 0 {
		p.HLSTime = 4
	}
	if p.HLSListSize == 0 {
		p.HLSListSize = 6
	}
	if p.Tier == "" {
		p.Tier = p.DeriveTier()
	}
	return p.Validate()
}

// BeforeUpdate is a GORM hook that re-derives the tier when cleared and
// validates the profile before update.
func (p *TranscodingProfile) BeforeUpdate(tx *gorm.DB) error {
	if p.Tier == "" {
		p.Tier = p.DeriveTier()
	}
	return p.Validate()
}

// Clone creates a copy of the profile suitable for customization.
// The caller must set Name on the returned clone.
func (p *TranscodingProfile) Clone() *TranscodingProfile {
	clone := *p
	clone.ID = ULID{}
	clone.Name = ""
	clone.Description = ""
	clone.IsDefault = false
	clone.IsSystem = false
	clone.CreatedAt = Now()
	clone.UpdatedAt = Now()
	return &clone
}

// String returns a compact description for logs.
func (p *TranscodingProfile) String() string {
	return fmt.Sprintf("%s (%s %s/%s %s)", p.Name, p.Tier, p.VideoCodec, p.AudioCodec, p.Resolution)
}
