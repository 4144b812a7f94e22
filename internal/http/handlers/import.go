package handlers

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/importer"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// ImportHandler handles playlist import endpoints.
type ImportHandler struct {
	importer *importer.Service
}

// NewImportHandler creates a new import handler.
func NewImportHandler(svc *importer.Service) *ImportHandler {
	return &ImportHandler{importer: svc}
}

// Register registers the import routes with the API.
func (h *ImportHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "importM3U",
		Method:      "POST",
		Path:        "/api/v1/import/m3u",
		Summary:     "Import M3U playlist",
		Description: "Imports channels from an M3U playlist, by URL or inline content. Existing channels are matched by source URL and their metadata refreshed.",
		Tags:        []string{"Import"},
	}, h.ImportM3U)
}

// ImportM3UInput is the input for the M3U import endpoint. Exactly one of
// url and content must be provided.
type ImportM3UInput struct {
	Body struct {
		URL     string `json:"url,omitempty" doc:"Playlist URL to download" maxLength:"4096"`
		Content string `json:"content,omitempty" doc:"Inline playlist text" maxLength:"10485760"`
	}
}

// ImportM3UOutput is the output for the M3U import endpoint.
type ImportM3UOutput struct {
	Body importer.Result
}

// ImportM3U imports a playlist into the channel catalog.
func (h *ImportHandler) ImportM3U(ctx context.Context, input *ImportM3UInput) (*ImportM3UOutput, error) {
	hasURL := input.Body.URL != ""
	hasContent := input.Body.Content != ""
	if hasURL == hasContent {
		return nil, huma.Error400BadRequest("exactly one of url and content must be provided")
	}

	var (
		result importer.Result
		err    error
	)
	if hasURL {
		result, err = h.importer.ImportURL(ctx, input.Body.URL, models.ActorAPI)
	} else {
		result, err = h.importer.Import(ctx, strings.NewReader(input.Body.Content), "api upload", models.ActorAPI)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("import failed", err)
	}
	return &ImportM3UOutput{Body: result}, nil
}
