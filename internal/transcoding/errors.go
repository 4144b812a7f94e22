package transcoding

import (
	"errors"
	"fmt"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// ErrChannelNotFound is returned when the channel does not exist.
var ErrChannelNotFound = errors.New("channel not found")

// ErrTranscodingDisabled is returned when the channel is not managed by the
// orchestrator.
var ErrTranscodingDisabled = errors.New("transcoding is disabled for channel")

// ErrAlreadyRunning is returned when the channel already has a live encoder
// session.
var ErrAlreadyRunning = errors.New("channel already has a live encoder session")

// ErrOfflinePermanent is returned when starting a permanently quarantined
// channel; only a manual retry clears the state.
var ErrOfflinePermanent = errors.New("channel is permanently offline, manual retry required")

// ErrProfileNotFound is returned when no usable profile could be resolved for
// a start request.
var ErrProfileNotFound = errors.New("transcoding profile not found")

// ErrProfileDisabled is returned when the resolved profile is disabled.
var ErrProfileDisabled = errors.New("transcoding profile is disabled")

// ErrInvalidProfile is returned when the resolved profile fails validation.
var ErrInvalidProfile = errors.New("invalid transcoding profile")

// ErrResourceExhausted is the sentinel matched by ResourceExhaustedError so
// callers can branch with errors.Is without caring about occupancy details.
var ErrResourceExhausted = errors.New("tier concurrency limit reached")

// ErrShuttingDown is returned for operations requested after Shutdown began.
var ErrShuttingDown = errors.New("supervisor is shutting down")

// ResourceExhaustedError reports an admission denial with the tier occupancy
// at decision time. No job is created and no state changes on denial.
type ResourceExhaustedError struct {
	Tier    models.ProfileTier
	Current int
	Max     int
}

// Error implements the error interface.
func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("tier %s at capacity (%d/%d)", e.Tier, e.Current, e.Max)
}

// Is reports ErrResourceExhausted as a match target.
func (e *ResourceExhaustedError) Is(target error) bool {
	return target == ErrResourceExhausted
}
