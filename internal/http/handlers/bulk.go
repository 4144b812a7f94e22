package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/transcoding"
)

// BulkHandler handles fleet-wide orchestration endpoints.
type BulkHandler struct {
	supervisor *transcoding.Supervisor
}

// NewBulkHandler creates a new bulk handler.
func NewBulkHandler(supervisor *transcoding.Supervisor) *BulkHandler {
	return &BulkHandler{supervisor: supervisor}
}

// Register registers the bulk routes with the API.
func (h *BulkHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "bulkStart",
		Method:      "POST",
		Path:        "/api/v1/bulk/start",
		Summary:     "Bulk start",
		Description: "Starts the listed channels with a stagger delay between starts",
		Tags:        []string{"Bulk"},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "bulkStop",
		Method:      "POST",
		Path:        "/api/v1/bulk/stop",
		Summary:     "Bulk stop",
		Tags:        []string{"Bulk"},
	}, h.Stop)

	huma.Register(api, huma.Operation{
		OperationID: "emergencyStop",
		Method:      "POST",
		Path:        "/api/v1/bulk/emergency-stop",
		Summary:     "Emergency stop",
		Description: "Kills every live encoder session immediately, skipping graceful teardown",
		Tags:        []string{"Bulk"},
	}, h.EmergencyStop)

	huma.Register(api, huma.Operation{
		OperationID: "bulkMigrate",
		Method:      "POST",
		Path:        "/api/v1/bulk/migrate",
		Summary:     "Migrate to profile",
		Description: "Reassigns every live channel to the given profile and restarts each one",
		Tags:        []string{"Bulk"},
	}, h.Migrate)
}

func parseIDList(raw []string) ([]models.ULID, error) {
	ids := make([]models.ULID, 0, len(raw))
	for _, s := range raw {
		id, err := models.ParseULID(s)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid channel ID "+s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BulkStartInput is the input for bulk start.
type BulkStartInput struct {
	Body struct {
		ChannelIDs []string `json:"channel_ids" doc:"Channels to start" minItems:"1"`
		StaggerMs  int      `json:"stagger_ms,omitempty" doc:"Delay between successive starts in milliseconds; 0 uses the configured default" minimum:"0"`
	}
}

// BulkResultsOutput is the output for bulk operations.
type BulkResultsOutput struct {
	Body struct {
		Results []transcoding.BulkResult `json:"results"`
		Started int                      `json:"started,omitempty"`
		Stopped int                      `json:"stopped,omitempty"`
		Failed  int                      `json:"failed"`
	}
}

func bulkOutput(results []transcoding.BulkResult) *BulkResultsOutput {
	resp := &BulkResultsOutput{}
	resp.Body.Results = results
	for _, r := range results {
		if !r.OK {
			resp.Body.Failed++
		}
	}
	return resp
}

// Start starts the listed channels with staggered spawns.
func (h *BulkHandler) Start(ctx context.Context, input *BulkStartInput) (*BulkResultsOutput, error) {
	ids, err := parseIDList(input.Body.ChannelIDs)
	if err != nil {
		return nil, err
	}

	stagger := time.Duration(input.Body.StaggerMs) * time.Millisecond
	results, err := h.supervisor.BulkStart(ctx, ids, stagger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, huma.Error500InternalServerError("bulk start failed", err)
	}

	resp := bulkOutput(results)
	resp.Body.Started = len(results) - resp.Body.Failed
	return resp, nil
}

// BulkStopInput is the input for bulk stop.
type BulkStopInput struct {
	Body struct {
		ChannelIDs []string `json:"channel_ids" doc:"Channels to stop" minItems:"1"`
	}
}

// Stop stops the listed channels.
func (h *BulkHandler) Stop(ctx context.Context, input *BulkStopInput) (*BulkResultsOutput, error) {
	ids, err := parseIDList(input.Body.ChannelIDs)
	if err != nil {
		return nil, err
	}

	results, err := h.supervisor.BulkStop(ctx, ids)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, huma.Error500InternalServerError("bulk stop failed", err)
	}

	resp := bulkOutput(results)
	resp.Body.Stopped = len(results) - resp.Body.Failed
	return resp, nil
}

// EmergencyStopInput is the input for emergency stop.
type EmergencyStopInput struct{}

// EmergencyStopOutput is the output for emergency stop.
type EmergencyStopOutput struct {
	Body struct {
		Killed int `json:"killed"`
	}
}

// EmergencyStop kills every live session immediately.
func (h *BulkHandler) EmergencyStop(ctx context.Context, input *EmergencyStopInput) (*EmergencyStopOutput, error) {
	resp := &EmergencyStopOutput{}
	resp.Body.Killed = h.supervisor.EmergencyStopAll(ctx)
	return resp, nil
}

// BulkMigrateInput is the input for bulk migration.
type BulkMigrateInput struct {
	Body struct {
		ProfileID string `json:"profile_id" doc:"Target profile ID (ULID)" minLength:"1"`
	}
}

// Migrate moves every live channel to the target profile.
func (h *BulkHandler) Migrate(ctx context.Context, input *BulkMigrateInput) (*BulkResultsOutput, error) {
	profileID, err := models.ParseULID(input.Body.ProfileID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid profile_id format", err)
	}

	results, err := h.supervisor.MigrateToProfile(ctx, profileID)
	if err != nil {
		switch {
		case errors.Is(err, transcoding.ErrProfileNotFound), errors.Is(err, transcoding.ErrProfileDisabled):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		case errors.Is(err, context.Canceled):
			// fall through with partial results
		default:
			return nil, huma.Error500InternalServerError("bulk migrate failed", err)
		}
	}

	resp := bulkOutput(results)
	resp.Body.Started = len(results) - resp.Body.Failed
	return resp, nil
}
