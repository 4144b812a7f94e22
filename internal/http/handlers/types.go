// Package handlers provides the admin API operations.
package handlers

import (
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// Pagination contains pagination parameters for list requests.
type Pagination struct {
	Page  int `query:"page" default:"1" minimum:"1" doc:"Page number (1-indexed)"`
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"1000" doc:"Items per page"`
}

// Offset returns the row offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PaginationMeta contains pagination metadata in responses.
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int64 `json:"total_pages"`
}

// MetaFor computes pagination metadata for a page and total row count.
func MetaFor(p Pagination, total int64) PaginationMeta {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return PaginationMeta{
		CurrentPage: p.Page,
		PageSize:    p.Limit,
		TotalItems:  total,
		TotalPages:  pages,
	}
}

// ChannelResponse represents a channel in API responses.
type ChannelResponse struct {
	ID                  models.ULID               `json:"id"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
	Name                string                    `json:"name"`
	Number              int                       `json:"number,omitempty"`
	SourceURL           string                    `json:"source_url"`
	LogoURL             string                    `json:"logo_url,omitempty"`
	Category            string                    `json:"category,omitempty"`
	TranscodingEnabled  bool                      `json:"transcoding_enabled"`
	ProfileID           *models.ULID              `json:"profile_id,omitempty"`
	ProfileName         string                    `json:"profile_name,omitempty"`
	TranscodingStatus   models.TranscodingStatus  `json:"transcoding_status"`
	TranscodedURL       string                    `json:"transcoded_url,omitempty"`
	OfflineReason       string                    `json:"offline_reason,omitempty"`
	DeadSourceCount     int                       `json:"dead_source_count"`
	LastDeadSourceEvent *time.Time                `json:"last_dead_source_event,omitempty"`
	StreamHealthStatus  models.StreamHealthStatus `json:"stream_health_status"`
	LastHealthCheck     *time.Time                `json:"last_health_check,omitempty"`
	AvgResponseTimeMs   int64                     `json:"avg_response_time_ms"`
	UptimePercentage    float64                   `json:"uptime_percentage"`
}

// ChannelFromModel converts a channel to a response.
func ChannelFromModel(c *models.Channel) ChannelResponse {
	resp := ChannelResponse{
		ID:                 c.ID,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		Name:               c.Name,
		Number:             c.Number,
		SourceURL:          c.SourceURL,
		LogoURL:            c.LogoURL,
		Category:           c.Category,
		TranscodingEnabled: c.IsTranscodingEnabled(),
		ProfileID:          c.ProfileID,
		TranscodingStatus:  c.TranscodingStatus,
		TranscodedURL:      c.TranscodedURL,
		OfflineReason:      c.OfflineReason,
		DeadSourceCount:    c.DeadSourceCount,
		StreamHealthStatus: c.StreamHealthStatus,
		AvgResponseTimeMs:  c.AvgResponseTimeMs,
		UptimePercentage:   c.UptimePercentage,
	}
	if c.Profile != nil {
		resp.ProfileName = c.Profile.Name
	}
	if c.LastDeadSourceEvent != nil {
		t := time.Time(*c.LastDeadSourceEvent)
		resp.LastDeadSourceEvent = &t
	}
	if c.LastHealthCheck != nil {
		t := time.Time(*c.LastHealthCheck)
		resp.LastHealthCheck = &t
	}
	return resp
}

// CreateChannelRequest is the request body for creating a channel.
type CreateChannelRequest struct {
	Name               string       `json:"name" doc:"Channel display name" minLength:"1" maxLength:"512"`
	Number             int          `json:"number,omitempty" doc:"Channel number" minimum:"0"`
	SourceURL          string       `json:"source_url" doc:"Upstream stream URL" minLength:"1" maxLength:"4096"`
	LogoURL            string       `json:"logo_url,omitempty" doc:"Channel logo URL" maxLength:"2048"`
	Category           string       `json:"category,omitempty" doc:"Channel grouping" maxLength:"255"`
	TranscodingEnabled *bool        `json:"transcoding_enabled,omitempty" doc:"Whether the orchestrator manages this channel (default: true)"`
	ProfileID          *models.ULID `json:"profile_id,omitempty" doc:"Transcoding profile to use; omit for the default"`
}

// ToModel converts the request to a channel.
func (r *CreateChannelRequest) ToModel() *models.Channel {
	ch := &models.Channel{
		Name:      r.Name,
		Number:    r.Number,
		SourceURL: r.SourceURL,
		LogoURL:   r.LogoURL,
		Category:  r.Category,
		ProfileID: r.ProfileID,
	}
	if r.TranscodingEnabled != nil {
		ch.TranscodingEnabled = r.TranscodingEnabled
	}
	return ch
}

// UpdateChannelRequest is the request body for updating a channel. Nil
// fields are left unchanged.
type UpdateChannelRequest struct {
	Name               *string      `json:"name,omitempty" doc:"Channel display name" maxLength:"512"`
	Number             *int         `json:"number,omitempty" doc:"Channel number" minimum:"0"`
	SourceURL          *string      `json:"source_url,omitempty" doc:"Upstream stream URL" maxLength:"4096"`
	LogoURL            *string      `json:"logo_url,omitempty" doc:"Channel logo URL" maxLength:"2048"`
	Category           *string      `json:"category,omitempty" doc:"Channel grouping" maxLength:"255"`
	TranscodingEnabled *bool        `json:"transcoding_enabled,omitempty" doc:"Whether the orchestrator manages this channel"`
	ProfileID          *models.ULID `json:"profile_id,omitempty" doc:"Transcoding profile to use"`
}

// Apply copies set fields onto the channel.
func (r *UpdateChannelRequest) Apply(ch *models.Channel) {
	if r.Name != nil {
		ch.Name = *r.Name
	}
	if r.Number != nil {
		ch.Number = *r.Number
	}
	if r.SourceURL != nil {
		ch.SourceURL = *r.SourceURL
	}
	if r.LogoURL != nil {
		ch.LogoURL = *r.LogoURL
	}
	if r.Category != nil {
		ch.Category = *r.Category
	}
	if r.TranscodingEnabled != nil {
		ch.TranscodingEnabled = r.TranscodingEnabled
	}
	if r.ProfileID != nil {
		ch.ProfileID = r.ProfileID
	}
}

// ProfileResponse represents a transcoding profile in API responses.
type ProfileResponse struct {
	ID           models.ULID        `json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Tier         models.ProfileTier `json:"tier"`
	VideoCodec   models.VideoCodec  `json:"video_codec"`
	AudioCodec   models.AudioCodec  `json:"audio_codec"`
	VideoBitrate string             `json:"video_bitrate,omitempty"`
	AudioBitrate string             `json:"audio_bitrate,omitempty"`
	Resolution   string             `json:"resolution,omitempty"`
	Preset       string             `json:"preset,omitempty"`
	Tune         string             `json:"tune,omitempty"`
	GopSize      int                `json:"gop_size,omitempty"`
	HLSTime      int                `json:"hls_time"`
	HLSListSize  int                `json:"hls_list_size"`
	ExtraFlags   string             `json:"extra_flags,omitempty"`
	IsDefault    bool               `json:"is_default"`
	IsSystem     bool               `json:"is_system"`
	Enabled      bool               `json:"enabled"`
}

// ProfileFromModel converts a profile to a response.
func ProfileFromModel(p *models.TranscodingProfile) ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Name:         p.Name,
		Description:  p.Description,
		Tier:         p.Tier,
		VideoCodec:   p.VideoCodec,
		AudioCodec:   p.AudioCodec,
		VideoBitrate: p.VideoBitrate,
		AudioBitrate: p.AudioBitrate,
		Resolution:   p.Resolution,
		Preset:       p.Preset,
		Tune:         p.Tune,
		GopSize:      p.GopSize,
		HLSTime:      p.HLSTime,
		HLSListSize:  p.HLSListSize,
		ExtraFlags:   p.ExtraFlags,
		IsDefault:    p.IsDefault,
		IsSystem:     p.IsSystem,
		Enabled:      p.IsEnabled(),
	}
}

// CreateProfileRequest is the request body for creating a profile.
type CreateProfileRequest struct {
	Name         string             `json:"name" doc:"Unique profile name" minLength:"1" maxLength:"100"`
	Description  string             `json:"description,omitempty" doc:"What the profile is for" maxLength:"500"`
	Tier         models.ProfileTier `json:"tier,omitempty" doc:"Admission tier; derived from codecs and resolution when omitted" enum:"copy,low,medium,high"`
	VideoCodec   models.VideoCodec  `json:"video_codec,omitempty" doc:"Target video codec" enum:"copy,h264,h265"`
	AudioCodec   models.AudioCodec  `json:"audio_codec,omitempty" doc:"Target audio codec" enum:"copy,aac,mp3"`
	VideoBitrate string             `json:"video_bitrate,omitempty" doc:"Video bitrate in ffmpeg rate syntax" maxLength:"20"`
	AudioBitrate string             `json:"audio_bitrate,omitempty" doc:"Audio bitrate" maxLength:"20"`
	Resolution   string             `json:"resolution,omitempty" doc:"Output size as WIDTHxHEIGHT; empty keeps source" maxLength:"20"`
	Preset       string             `json:"preset,omitempty" doc:"Encoder preset" maxLength:"20"`
	Tune         string             `json:"tune,omitempty" doc:"Encoder tune" maxLength:"20"`
	GopSize      int                `json:"gop_size,omitempty" doc:"Keyframe interval in frames" minimum:"0"`
	HLSTime      int                `json:"hls_time,omitempty" doc:"Segment duration in seconds" minimum:"0"`
	HLSListSize  int                `json:"hls_list_size,omitempty" doc:"Segments kept in the live playlist" minimum:"0"`
	ExtraFlags   string             `json:"extra_flags,omitempty" doc:"Extra ffmpeg output flags" maxLength:"1000"`
	IsDefault    bool               `json:"is_default,omitempty" doc:"Use for channels without an assigned profile"`
	Enabled      *bool              `json:"enabled,omitempty" doc:"Whether the profile can be used (default: true)"`
}

// ToModel converts the request to a profile.
func (r *CreateProfileRequest) ToModel() *models.TranscodingProfile {
	p := &models.TranscodingProfile{
		Name:         r.Name,
		Description:  r.Description,
		Tier:         r.Tier,
		VideoCodec:   r.VideoCodec,
		AudioCodec:   r.AudioCodec,
		VideoBitrate: r.VideoBitrate,
		AudioBitrate: r.AudioBitrate,
		Resolution:   r.Resolution,
		Preset:       r.Preset,
		Tune:         r.Tune,
		GopSize:      r.GopSize,
		HLSTime:      r.HLSTime,
		HLSListSize:  r.HLSListSize,
		ExtraFlags:   r.ExtraFlags,
		IsDefault:    r.IsDefault,
	}
	if r.Enabled != nil {
		p.Enabled = r.Enabled
	}
	if p.Tier == "" {
		p.Tier = p.DeriveTier()
	}
	return p
}

// UpdateProfileRequest is the request body for updating a profile. Nil
// fields are left unchanged.
type UpdateProfileRequest struct {
	Name         *string             `json:"name,omitempty" doc:"Unique profile name" maxLength:"100"`
	Description  *string             `json:"description,omitempty" doc:"What the profile is for" maxLength:"500"`
	Tier         *models.ProfileTier `json:"tier,omitempty" doc:"Admission tier" enum:"copy,low,medium,high"`
	VideoCodec   *models.VideoCodec  `json:"video_codec,omitempty" doc:"Target video codec" enum:"copy,h264,h265"`
	AudioCodec   *models.AudioCodec  `json:"audio_codec,omitempty" doc:"Target audio codec" enum:"copy,aac,mp3"`
	VideoBitrate *string             `json:"video_bitrate,omitempty" doc:"Video bitrate" maxLength:"20"`
	AudioBitrate *string             `json:"audio_bitrate,omitempty" doc:"Audio bitrate" maxLength:"20"`
	Resolution   *string             `json:"resolution,omitempty" doc:"Output size as WIDTHxHEIGHT" maxLength:"20"`
	Preset       *string             `json:"preset,omitempty" doc:"Encoder preset" maxLength:"20"`
	Tune         *string             `json:"tune,omitempty" doc:"Encoder tune" maxLength:"20"`
	GopSize      *int                `json:"gop_size,omitempty" doc:"Keyframe interval in frames" minimum:"0"`
	HLSTime      *int                `json:"hls_time,omitempty" doc:"Segment duration in seconds" minimum:"0"`
	HLSListSize  *int                `json:"hls_list_size,omitempty" doc:"Segments kept in the live playlist" minimum:"0"`
	ExtraFlags   *string             `json:"extra_flags,omitempty" doc:"Extra ffmpeg output flags" maxLength:"1000"`
	IsDefault    *bool               `json:"is_default,omitempty" doc:"Use for channels without an assigned profile"`
	Enabled      *bool               `json:"enabled,omitempty" doc:"Whether the profile can be used"`
}

// Apply copies set fields onto the profile.
func (r *UpdateProfileRequest) Apply(p *models.TranscodingProfile) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Tier != nil {
		p.Tier = *r.Tier
	}
	if r.VideoCodec != nil {
		p.VideoCodec = *r.VideoCodec
	}
	if r.AudioCodec != nil {
		p.AudioCodec = *r.AudioCodec
	}
	if r.VideoBitrate != nil {
		p.VideoBitrate = *r.VideoBitrate
	}
	if r.AudioBitrate != nil {
		p.AudioBitrate = *r.AudioBitrate
	}
	if r.Resolution != nil {
		p.Resolution = *r.Resolution
	}
	if r.Preset != nil {
		p.Preset = *r.Preset
	}
	if r.Tune != nil {
		p.Tune = *r.Tune
	}
	if r.GopSize != nil {
		p.GopSize = *r.GopSize
	}
	if r.HLSTime != nil {
		p.HLSTime = *r.HLSTime
	}
	if r.HLSListSize != nil {
		p.HLSListSize = *r.HLSListSize
	}
	if r.ExtraFlags != nil {
		p.ExtraFlags = *r.ExtraFlags
	}
	if r.IsDefault != nil {
		p.IsDefault = *r.IsDefault
	}
	if r.Enabled != nil {
		p.Enabled = r.Enabled
	}
}

// JobResponse represents a transcoding job in API responses.
type JobResponse struct {
	ID           models.ULID      `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	ChannelID    models.ULID      `json:"channel_id"`
	ChannelName  string           `json:"channel_name,omitempty"`
	ProfileID    models.ULID      `json:"profile_id"`
	ProfileName  string           `json:"profile_name,omitempty"`
	PID          int              `json:"pid,omitempty"`
	OutputDir    string           `json:"output_dir"`
	PlaylistPath string           `json:"playlist_path,omitempty"`
	Status       models.JobStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ExitCode     *int             `json:"exit_code,omitempty"`
	IsRetry      bool             `json:"is_retry"`
	ErrorCount   int              `json:"error_count"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
}

// JobFromModel converts a job to a response.
func JobFromModel(j *models.TranscodingJob) JobResponse {
	resp := JobResponse{
		ID:           j.ID,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		ChannelID:    j.ChannelID,
		ProfileID:    j.ProfileID,
		PID:          j.PID,
		OutputDir:    j.OutputDir,
		PlaylistPath: j.PlaylistPath,
		Status:       j.Status,
		ErrorMessage: j.ErrorMessage,
		ExitCode:     j.ExitCode,
		IsRetry:      j.IsRetry,
		ErrorCount:   j.ErrorCount,
	}
	if j.Channel != nil {
		resp.ChannelName = j.Channel.Name
	}
	if j.Profile != nil {
		resp.ProfileName = j.Profile.Name
	}
	if j.StartedAt != nil {
		t := time.Time(*j.StartedAt)
		resp.StartedAt = &t
	}
	if j.EndedAt != nil {
		t := time.Time(*j.EndedAt)
		resp.EndedAt = &t
	}
	return resp
}

// DeadSourceEventResponse represents a dead-source event in API responses.
type DeadSourceEventResponse struct {
	ID            models.ULID        `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	ChannelID     models.ULID        `json:"channel_id"`
	ChannelName   string             `json:"channel_name,omitempty"`
	ErrorPattern  string             `json:"error_pattern"`
	ProfileTier   models.ProfileTier `json:"profile_tier"`
	CooldownUntil time.Time          `json:"cooldown_until"`
	RetryCount    int                `json:"retry_count"`
	Resolved      bool               `json:"resolved"`
}

// DeadSourceEventFromModel converts an event to a response.
func DeadSourceEventFromModel(e *models.DeadSourceEvent) DeadSourceEventResponse {
	resp := DeadSourceEventResponse{
		ID:            e.ID,
		CreatedAt:     e.CreatedAt,
		ChannelID:     e.ChannelID,
		ErrorPattern:  e.ErrorPattern,
		ProfileTier:   e.ProfileTier,
		CooldownUntil: time.Time(e.CooldownUntil),
		RetryCount:    e.RetryCount,
		Resolved:      e.Resolved,
	}
	if e.Channel != nil {
		resp.ChannelName = e.Channel.Name
	}
	return resp
}

// ActionLogResponse represents an audit entry in API responses.
type ActionLogResponse struct {
	ID        models.ULID        `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Actor     models.ActionActor `json:"actor"`
	Action    string             `json:"action"`
	ChannelID models.ULID        `json:"channel_id,omitempty"`
	Detail    string             `json:"detail,omitempty"`
}

// ActionLogFromModel converts an entry to a response.
func ActionLogFromModel(l *models.ActionLog) ActionLogResponse {
	return ActionLogResponse{
		ID:        l.ID,
		CreatedAt: l.CreatedAt,
		Actor:     l.Actor,
		Action:    l.Action,
		ChannelID: l.ChannelID,
		Detail:    l.Detail,
	}
}
