package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrSourceURLRequired indicates a required source URL field is empty.
	ErrSourceURLRequired = errors.New("source_url is required")

	// ErrInvalidURL indicates a malformed URL.
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrChannelIDRequired indicates a required channel ID field is zero.
	ErrChannelIDRequired = errors.New("channel_id is required")

	// ErrProfileIDRequired indicates a required profile ID field is zero.
	ErrProfileIDRequired = errors.New("profile_id is required")

	// ErrInvalidTranscodingStatus indicates an unrecognized transcoding status value.
	ErrInvalidTranscodingStatus = errors.New("invalid transcoding status")

	// ErrProfileNameRequired indicates a required profile name field is empty.
	ErrProfileNameRequired = errors.New("profile name is required")

	// ErrProfileInvalidTier indicates an unrecognized profile tier value.
	ErrProfileInvalidTier = errors.New("invalid profile tier: must be 'copy', 'low', 'medium' or 'high'")

	// ErrProfileInvalidVideoCodec indicates an invalid video codec for a profile.
	ErrProfileInvalidVideoCodec = errors.New("invalid video codec: must be 'copy', 'h264' or 'h265'")

	// ErrProfileInvalidAudioCodec indicates an invalid audio codec for a profile.
	ErrProfileInvalidAudioCodec = errors.New("invalid audio codec: must be 'copy', 'aac' or 'mp3'")

	// ErrProfileInvalidResolution indicates a malformed resolution string.
	ErrProfileInvalidResolution = errors.New("invalid resolution: expected WIDTHxHEIGHT")

	// ErrProfileInvalidSegmentTime indicates an invalid HLS segment duration.
	ErrProfileInvalidSegmentTime = errors.New("hls segment time must be 2-10 seconds")

	// ErrProfileInvalidListSize indicates an invalid HLS playlist size.
	ErrProfileInvalidListSize = errors.New("hls list size must be 3-20 segments")

	// ErrOutputPathRequired indicates a required output path field is empty.
	ErrOutputPathRequired = errors.New("output_path is required")

	// ErrPatternRequired indicates a required error pattern field is empty.
	ErrPatternRequired = errors.New("error_pattern is required")

	// ErrActionRequired indicates a required action field is empty.
	ErrActionRequired = errors.New("action is required")
)
