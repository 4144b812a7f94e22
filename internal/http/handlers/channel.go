package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/pokerist/marmaricatv-sub001/internal/transcoding"
)

// ChannelHandler handles channel CRUD and encoder lifecycle endpoints.
type ChannelHandler struct {
	channels   repository.ChannelRepository
	profiles   repository.ProfileRepository
	supervisor *transcoding.Supervisor
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(channels repository.ChannelRepository, profiles repository.ProfileRepository, supervisor *transcoding.Supervisor) *ChannelHandler {
	return &ChannelHandler{
		channels:   channels,
		profiles:   profiles,
		supervisor: supervisor,
	}
}

// Register registers the channel routes with the API.
func (h *ChannelHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listChannels",
		Method:      "GET",
		Path:        "/api/v1/channels",
		Summary:     "List channels",
		Description: "Returns channels ordered by number then name, paginated",
		Tags:        []string{"Channels"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "createChannel",
		Method:      "POST",
		Path:        "/api/v1/channels",
		Summary:     "Create channel",
		Tags:        []string{"Channels"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getChannel",
		Method:      "GET",
		Path:        "/api/v1/channels/{id}",
		Summary:     "Get channel",
		Tags:        []string{"Channels"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "updateChannel",
		Method:      "PUT",
		Path:        "/api/v1/channels/{id}",
		Summary:     "Update channel",
		Tags:        []string{"Channels"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteChannel",
		Method:      "DELETE",
		Path:        "/api/v1/channels/{id}",
		Summary:     "Delete channel",
		Description: "Deletes a channel. A live encoder session is stopped first.",
		Tags:        []string{"Channels"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "startChannel",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/start",
		Summary:     "Start transcoding",
		Description: "Starts an encoder session for the channel",
		Tags:        []string{"Channels"},
	}, h.Start)

	huma.Register(api, huma.Operation{
		OperationID: "stopChannel",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/stop",
		Summary:     "Stop transcoding",
		Tags:        []string{"Channels"},
	}, h.Stop)

	huma.Register(api, huma.Operation{
		OperationID: "restartChannel",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/restart",
		Summary:     "Restart transcoding",
		Tags:        []string{"Channels"},
	}, h.Restart)

	huma.Register(api, huma.Operation{
		OperationID: "toggleChannel",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/toggle",
		Summary:     "Toggle transcoding",
		Description: "Starts the channel when it has no live session, stops it otherwise",
		Tags:        []string{"Channels"},
	}, h.Toggle)

	huma.Register(api, huma.Operation{
		OperationID: "retryChannel",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/retry",
		Summary:     "Manual retry",
		Description: "Clears quarantine and dead-source history and starts the channel fresh",
		Tags:        []string{"Channels"},
	}, h.Retry)

	huma.Register(api, huma.Operation{
		OperationID: "markChannelOffline",
		Method:      "POST",
		Path:        "/api/v1/channels/{id}/offline",
		Summary:     "Mark permanently offline",
		Description: "Stops any live session and excludes the channel from automatic recovery",
		Tags:        []string{"Channels"},
	}, h.MarkOffline)
}

func (h *ChannelHandler) parseID(raw string) (models.ULID, error) {
	id, err := models.ParseULID(raw)
	if err != nil {
		return models.ULID{}, huma.Error400BadRequest("invalid ID format", err)
	}
	return id, nil
}

// lifecycleError maps supervisor errors onto HTTP statuses.
func lifecycleError(action string, err error) error {
	switch {
	case errors.Is(err, transcoding.ErrChannelNotFound):
		return huma.Error404NotFound("channel not found")
	case errors.Is(err, transcoding.ErrAlreadyRunning),
		errors.Is(err, transcoding.ErrOfflinePermanent),
		errors.Is(err, transcoding.ErrTranscodingDisabled),
		errors.Is(err, transcoding.ErrShuttingDown):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, transcoding.ErrResourceExhausted):
		return huma.Error429TooManyRequests(err.Error())
	case errors.Is(err, transcoding.ErrProfileNotFound),
		errors.Is(err, transcoding.ErrProfileDisabled),
		errors.Is(err, transcoding.ErrInvalidProfile):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError(fmt.Sprintf("failed to %s channel", action), err)
	}
}

// ListChannelsInput is the input for listing channels.
type ListChannelsInput struct {
	Pagination
}

// ListChannelsOutput is the output for listing channels.
type ListChannelsOutput struct {
	Body struct {
		Channels   []ChannelResponse `json:"channels"`
		Pagination PaginationMeta    `json:"pagination"`
	}
}

// List returns channels paginated.
func (h *ChannelHandler) List(ctx context.Context, input *ListChannelsInput) (*ListChannelsOutput, error) {
	channels, total, err := h.channels.GetAllPaginated(ctx, input.Offset(), input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list channels", err)
	}

	resp := &ListChannelsOutput{}
	resp.Body.Channels = make([]ChannelResponse, 0, len(channels))
	for _, c := range channels {
		resp.Body.Channels = append(resp.Body.Channels, ChannelFromModel(c))
	}
	resp.Body.Pagination = MetaFor(input.Pagination, total)
	return resp, nil
}

// CreateChannelInput is the input for creating a channel.
type CreateChannelInput struct {
	Body CreateChannelRequest
}

// ChannelOutput is the output wrapping a single channel.
type ChannelOutput struct {
	Body ChannelResponse
}

// Create creates a channel.
func (h *ChannelHandler) Create(ctx context.Context, input *CreateChannelInput) (*ChannelOutput, error) {
	ch := input.Body.ToModel()

	if ch.ProfileID != nil {
		profile, err := h.profiles.GetByID(ctx, *ch.ProfileID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to look up profile", err)
		}
		if profile == nil {
			return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("profile %s not found", *ch.ProfileID))
		}
	}

	if err := h.channels.Create(ctx, ch); err != nil {
		return nil, huma.Error500InternalServerError("failed to create channel", err)
	}
	return &ChannelOutput{Body: ChannelFromModel(ch)}, nil
}

// GetChannelInput is the input for getting a channel.
type GetChannelInput struct {
	ID string `path:"id" doc:"Channel ID (ULID)"`
}

// GetByID returns a channel by ID.
func (h *ChannelHandler) GetByID(ctx context.Context, input *GetChannelInput) (*ChannelOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}

	ch, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if ch == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.ID))
	}
	return &ChannelOutput{Body: ChannelFromModel(ch)}, nil
}

// UpdateChannelInput is the input for updating a channel.
type UpdateChannelInput struct {
	ID   string `path:"id" doc:"Channel ID (ULID)"`
	Body UpdateChannelRequest
}

// Update applies a partial update to a channel.
func (h *ChannelHandler) Update(ctx context.Context, input *UpdateChannelInput) (*ChannelOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}

	ch, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if ch == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.ID))
	}

	input.Body.Apply(ch)

	if input.Body.ProfileID != nil {
		profile, err := h.profiles.GetByID(ctx, *input.Body.ProfileID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to look up profile", err)
		}
		if profile == nil {
			return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("profile %s not found", *input.Body.ProfileID))
		}
	}

	if err := h.channels.Update(ctx, ch); err != nil {
		return nil, huma.Error500InternalServerError("failed to update channel", err)
	}
	return &ChannelOutput{Body: ChannelFromModel(ch)}, nil
}

// DeleteChannelInput is the input for deleting a channel.
type DeleteChannelInput struct {
	ID string `path:"id" doc:"Channel ID (ULID)"`
}

// DeleteChannelOutput is the output for deleting a channel.
type DeleteChannelOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// Delete stops any live session and deletes the channel.
func (h *ChannelHandler) Delete(ctx context.Context, input *DeleteChannelInput) (*DeleteChannelOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}

	ch, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if ch == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.ID))
	}

	if h.supervisor.HasSession(id) {
		if err := h.supervisor.Stop(ctx, id); err != nil {
			return nil, lifecycleError("stop", err)
		}
	}

	if err := h.channels.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete channel", err)
	}

	resp := &DeleteChannelOutput{}
	resp.Body.Deleted = true
	return resp, nil
}

// LifecycleInput is the input for lifecycle operations addressed by channel ID.
type LifecycleInput struct {
	ID string `path:"id" doc:"Channel ID (ULID)"`
}

// LifecycleOutput reports the channel state after a lifecycle operation.
type LifecycleOutput struct {
	Body ChannelResponse
}

func (h *ChannelHandler) respondWithChannel(ctx context.Context, id models.ULID) (*LifecycleOutput, error) {
	ch, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get channel", err)
	}
	if ch == nil {
		return nil, huma.Error404NotFound("channel not found")
	}
	return &LifecycleOutput{Body: ChannelFromModel(ch)}, nil
}

// Start starts an encoder session for the channel.
func (h *ChannelHandler) Start(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.supervisor.Start(ctx, id, transcoding.StartOptions{}); err != nil {
		return nil, lifecycleError("start", err)
	}
	return h.respondWithChannel(ctx, id)
}

// Stop stops the channel's encoder session.
func (h *ChannelHandler) Stop(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.supervisor.Stop(ctx, id); err != nil {
		return nil, lifecycleError("stop", err)
	}
	return h.respondWithChannel(ctx, id)
}

// Restart restarts the channel's encoder session.
func (h *ChannelHandler) Restart(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.supervisor.Restart(ctx, id); err != nil {
		return nil, lifecycleError("restart", err)
	}
	return h.respondWithChannel(ctx, id)
}

// Toggle starts the channel when idle and stops it when live.
func (h *ChannelHandler) Toggle(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}

	if h.supervisor.HasSession(id) {
		if err := h.supervisor.Stop(ctx, id); err != nil {
			return nil, lifecycleError("stop", err)
		}
	} else if err := h.supervisor.Start(ctx, id, transcoding.StartOptions{}); err != nil {
		return nil, lifecycleError("start", err)
	}
	return h.respondWithChannel(ctx, id)
}

// Retry clears quarantine state and starts the channel fresh.
func (h *ChannelHandler) Retry(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.supervisor.ManualRetry(ctx, id); err != nil {
		return nil, lifecycleError("retry", err)
	}
	return h.respondWithChannel(ctx, id)
}

// MarkOfflineInput is the input for marking a channel permanently offline.
type MarkOfflineInput struct {
	ID   string `path:"id" doc:"Channel ID (ULID)"`
	Body struct {
		Reason string `json:"reason,omitempty" doc:"Why the channel is being taken offline" maxLength:"1024"`
	}
}

// MarkOffline takes the channel permanently offline.
func (h *ChannelHandler) MarkOffline(ctx context.Context, input *MarkOfflineInput) (*LifecycleOutput, error) {
	id, err := h.parseID(input.ID)
	if err != nil {
		return nil, err
	}
	if err := h.supervisor.MarkOffline(ctx, id, input.Body.Reason); err != nil {
		return nil, lifecycleError("mark offline", err)
	}
	return h.respondWithChannel(ctx, id)
}
