package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/monitoring"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

// EventsHandler handles dead-source, alert and audit listing endpoints.
type EventsHandler struct {
	deadSources repository.DeadSourceRepository
	resources   repository.ResourceRepository
	actions     repository.ActionLogRepository
	health      *monitoring.HealthMonitor
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deadSources repository.DeadSourceRepository, resources repository.ResourceRepository, actions repository.ActionLogRepository, health *monitoring.HealthMonitor) *EventsHandler {
	return &EventsHandler{
		deadSources: deadSources,
		resources:   resources,
		actions:     actions,
		health:      health,
	}
}

// Register registers the event routes with the API.
func (h *EventsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listDeadSources",
		Method:      "GET",
		Path:        "/api/v1/deadsources",
		Summary:     "List dead sources",
		Description: "Returns unresolved dead-source quarantines, oldest cooldown first",
		Tags:        []string{"Events"},
	}, h.ListDeadSources)

	huma.Register(api, huma.Operation{
		OperationID: "listAlerts",
		Method:      "GET",
		Path:        "/api/v1/alerts",
		Summary:     "List resource alerts",
		Description: "Returns threshold breaches over the lookback window, newest first",
		Tags:        []string{"Events"},
	}, h.ListAlerts)

	huma.Register(api, huma.Operation{
		OperationID: "listActions",
		Method:      "GET",
		Path:        "/api/v1/actions",
		Summary:     "List audit trail",
		Description: "Returns orchestrator actions newest first, paginated",
		Tags:        []string{"Events"},
	}, h.ListActions)

	huma.Register(api, huma.Operation{
		OperationID: "listStreamHealth",
		Method:      "GET",
		Path:        "/api/v1/streamhealth",
		Summary:     "List stream health",
		Description: "Returns the latest probe result per channel",
		Tags:        []string{"Events"},
	}, h.ListStreamHealth)
}

// ListDeadSourcesInput is the input for listing dead sources.
type ListDeadSourcesInput struct{}

// ListDeadSourcesOutput is the output for listing dead sources.
type ListDeadSourcesOutput struct {
	Body struct {
		Events []DeadSourceEventResponse `json:"events"`
	}
}

// ListDeadSources returns unresolved quarantine events.
func (h *EventsHandler) ListDeadSources(ctx context.Context, input *ListDeadSourcesInput) (*ListDeadSourcesOutput, error) {
	events, err := h.deadSources.GetUnresolved(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list dead sources", err)
	}

	resp := &ListDeadSourcesOutput{}
	resp.Body.Events = make([]DeadSourceEventResponse, 0, len(events))
	for _, e := range events {
		resp.Body.Events = append(resp.Body.Events, DeadSourceEventFromModel(e))
	}
	return resp, nil
}

// ListAlertsInput is the input for listing resource alerts.
type ListAlertsInput struct {
	Hours int `query:"hours" default:"24" minimum:"1" maximum:"720" doc:"Lookback window in hours"`
}

// ListAlertsOutput is the output for listing resource alerts.
type ListAlertsOutput struct {
	Body struct {
		Alerts []*models.ResourceAlert `json:"alerts"`
	}
}

// ListAlerts returns threshold breaches over the lookback window.
func (h *EventsHandler) ListAlerts(ctx context.Context, input *ListAlertsInput) (*ListAlertsOutput, error) {
	since := time.Now().Add(-time.Duration(input.Hours) * time.Hour)
	alerts, err := h.resources.GetAlertsSince(ctx, since)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list alerts", err)
	}

	resp := &ListAlertsOutput{}
	resp.Body.Alerts = alerts
	if resp.Body.Alerts == nil {
		resp.Body.Alerts = []*models.ResourceAlert{}
	}
	return resp, nil
}

// ListActionsInput is the input for listing the audit trail.
type ListActionsInput struct {
	Pagination
	ChannelID string `query:"channel_id" doc:"Filter by channel ID (ULID)"`
}

// ListActionsOutput is the output for listing the audit trail.
type ListActionsOutput struct {
	Body struct {
		Actions    []ActionLogResponse `json:"actions"`
		Pagination PaginationMeta      `json:"pagination"`
	}
}

// ListActions returns audit entries newest first.
func (h *EventsHandler) ListActions(ctx context.Context, input *ListActionsInput) (*ListActionsOutput, error) {
	var (
		entries []*models.ActionLog
		total   int64
		err     error
	)
	if input.ChannelID != "" {
		channelID, perr := models.ParseULID(input.ChannelID)
		if perr != nil {
			return nil, huma.Error400BadRequest("invalid channel_id format", perr)
		}
		entries, total, err = h.actions.GetByChannelPaginated(ctx, channelID, input.Offset(), input.Limit)
	} else {
		entries, total, err = h.actions.GetRecentPaginated(ctx, input.Offset(), input.Limit)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list actions", err)
	}

	resp := &ListActionsOutput{}
	resp.Body.Actions = make([]ActionLogResponse, 0, len(entries))
	for _, e := range entries {
		resp.Body.Actions = append(resp.Body.Actions, ActionLogFromModel(e))
	}
	resp.Body.Pagination = MetaFor(input.Pagination, total)
	return resp, nil
}

// StreamHealthEntry pairs a channel with its latest probe result.
type StreamHealthEntry struct {
	ChannelID models.ULID            `json:"channel_id"`
	Result    monitoring.ProbeResult `json:"result"`
}

// ListStreamHealthInput is the input for listing stream health.
type ListStreamHealthInput struct{}

// ListStreamHealthOutput is the output for listing stream health.
type ListStreamHealthOutput struct {
	Body struct {
		Channels []StreamHealthEntry `json:"channels"`
	}
}

// ListStreamHealth returns the newest probe result per channel.
func (h *EventsHandler) ListStreamHealth(ctx context.Context, input *ListStreamHealthInput) (*ListStreamHealthOutput, error) {
	results := h.health.Results()

	resp := &ListStreamHealthOutput{}
	resp.Body.Channels = make([]StreamHealthEntry, 0, len(results))
	for id, result := range results {
		resp.Body.Channels = append(resp.Body.Channels, StreamHealthEntry{ChannelID: id, Result: result})
	}
	return resp, nil
}
