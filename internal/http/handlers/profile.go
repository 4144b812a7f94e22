package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

// ProfileHandler handles transcoding profile CRUD endpoints.
type ProfileHandler struct {
	profiles repository.ProfileRepository
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles repository.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Register registers the profile routes with the API.
func (h *ProfileHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listProfiles",
		Method:      "GET",
		Path:        "/api/v1/profiles",
		Summary:     "List profiles",
		Tags:        []string{"Profiles"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "createProfile",
		Method:      "POST",
		Path:        "/api/v1/profiles",
		Summary:     "Create profile",
		Tags:        []string{"Profiles"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "getProfile",
		Method:      "GET",
		Path:        "/api/v1/profiles/{id}",
		Summary:     "Get profile",
		Tags:        []string{"Profiles"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "updateProfile",
		Method:      "PUT",
		Path:        "/api/v1/profiles/{id}",
		Summary:     "Update profile",
		Tags:        []string{"Profiles"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteProfile",
		Method:      "DELETE",
		Path:        "/api/v1/profiles/{id}",
		Summary:     "Delete profile",
		Description: "Deletes a profile. Seeded system profiles cannot be deleted.",
		Tags:        []string{"Profiles"},
	}, h.Delete)
}

// ListProfilesInput is the input for listing profiles.
type ListProfilesInput struct{}

// ListProfilesOutput is the output for listing profiles.
type ListProfilesOutput struct {
	Body struct {
		Profiles []ProfileResponse `json:"profiles"`
	}
}

// List returns all profiles.
func (h *ProfileHandler) List(ctx context.Context, input *ListProfilesInput) (*ListProfilesOutput, error) {
	profiles, err := h.profiles.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list profiles", err)
	}

	resp := &ListProfilesOutput{}
	resp.Body.Profiles = make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp.Body.Profiles = append(resp.Body.Profiles, ProfileFromModel(p))
	}
	return resp, nil
}

// CreateProfileInput is the input for creating a profile.
type CreateProfileInput struct {
	Body CreateProfileRequest
}

// ProfileOutput is the output wrapping a single profile.
type ProfileOutput struct {
	Body ProfileResponse
}

// Create creates a profile.
func (h *ProfileHandler) Create(ctx context.Context, input *CreateProfileInput) (*ProfileOutput, error) {
	p := input.Body.ToModel()

	existing, err := h.profiles.GetByName(ctx, p.Name)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to look up profile", err)
	}
	if existing != nil {
		return nil, huma.Error409Conflict(fmt.Sprintf("profile %q already exists", p.Name))
	}

	if err := h.profiles.Create(ctx, p); err != nil {
		return nil, huma.Error500InternalServerError("failed to create profile", err)
	}
	return &ProfileOutput{Body: ProfileFromModel(p)}, nil
}

// GetProfileInput is the input for getting a profile.
type GetProfileInput struct {
	ID string `path:"id" doc:"Profile ID (ULID)"`
}

func (h *ProfileHandler) load(ctx context.Context, raw string) (*models.TranscodingProfile, error) {
	id, err := models.ParseULID(raw)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	p, err := h.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get profile", err)
	}
	if p == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("profile %s not found", raw))
	}
	return p, nil
}

// GetByID returns a profile by ID.
func (h *ProfileHandler) GetByID(ctx context.Context, input *GetProfileInput) (*ProfileOutput, error) {
	p, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: ProfileFromModel(p)}, nil
}

// UpdateProfileInput is the input for updating a profile.
type UpdateProfileInput struct {
	ID   string `path:"id" doc:"Profile ID (ULID)"`
	Body UpdateProfileRequest
}

// Update applies a partial update to a profile.
func (h *ProfileHandler) Update(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	p, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	input.Body.Apply(p)

	if err := h.profiles.Update(ctx, p); err != nil {
		return nil, huma.Error500InternalServerError("failed to update profile", err)
	}
	return &ProfileOutput{Body: ProfileFromModel(p)}, nil
}

// DeleteProfileInput is the input for deleting a profile.
type DeleteProfileInput struct {
	ID string `path:"id" doc:"Profile ID (ULID)"`
}

// DeleteProfileOutput is the output for deleting a profile.
type DeleteProfileOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// Delete deletes a profile. System profiles are protected.
func (h *ProfileHandler) Delete(ctx context.Context, input *DeleteProfileInput) (*DeleteProfileOutput, error) {
	p, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p.IsSystem {
		return nil, huma.Error409Conflict(fmt.Sprintf("profile %q is a system profile", p.Name))
	}

	if err := h.profiles.Delete(ctx, p.ID); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete profile", err)
	}

	resp := &DeleteProfileOutput{}
	resp.Body.Deleted = true
	return resp, nil
}
