package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/pokerist/marmaricatv-sub001/internal/transcoding"
)

// JobHandler handles transcoding job endpoints.
type JobHandler struct {
	jobs       repository.JobRepository
	supervisor *transcoding.Supervisor
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs repository.JobRepository, supervisor *transcoding.Supervisor) *JobHandler {
	return &JobHandler{jobs: jobs, supervisor: supervisor}
}

// Register registers the job routes with the API.
func (h *JobHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listActiveJobs",
		Method:      "GET",
		Path:        "/api/v1/jobs/active",
		Summary:     "List active jobs",
		Description: "Returns live encoder sessions with their in-memory state",
		Tags:        []string{"Jobs"},
	}, h.ListActive)

	huma.Register(api, huma.Operation{
		OperationID: "listJobs",
		Method:      "GET",
		Path:        "/api/v1/jobs",
		Summary:     "List job history",
		Description: "Returns jobs newest first, paginated",
		Tags:        []string{"Jobs"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getJob",
		Method:      "GET",
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Get job",
		Tags:        []string{"Jobs"},
	}, h.GetByID)
}

// ListActiveJobsInput is the input for listing active jobs.
type ListActiveJobsInput struct{}

// ListActiveJobsOutput is the output for listing active jobs.
type ListActiveJobsOutput struct {
	Body struct {
		Sessions []transcoding.SessionInfo `json:"sessions"`
	}
}

// ListActive returns live encoder sessions from the registry.
func (h *JobHandler) ListActive(ctx context.Context, input *ListActiveJobsInput) (*ListActiveJobsOutput, error) {
	resp := &ListActiveJobsOutput{}
	resp.Body.Sessions = h.supervisor.Sessions()
	return resp, nil
}

// ListJobsInput is the input for listing job history.
type ListJobsInput struct {
	Pagination
	ChannelID string `query:"channel_id" doc:"Filter by channel ID (ULID)"`
}

// ListJobsOutput is the output for listing job history.
type ListJobsOutput struct {
	Body struct {
		Jobs       []JobResponse  `json:"jobs"`
		Pagination PaginationMeta `json:"pagination"`
	}
}

// List returns job history newest first.
func (h *JobHandler) List(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	var (
		jobs  []*models.TranscodingJob
		total int64
		err   error
	)
	if input.ChannelID != "" {
		channelID, perr := models.ParseULID(input.ChannelID)
		if perr != nil {
			return nil, huma.Error400BadRequest("invalid channel_id format", perr)
		}
		jobs, total, err = h.jobs.GetByChannelPaginated(ctx, channelID, input.Offset(), input.Limit)
	} else {
		jobs, total, err = h.jobs.GetAllPaginated(ctx, input.Offset(), input.Limit)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list jobs", err)
	}

	resp := &ListJobsOutput{}
	resp.Body.Jobs = make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp.Body.Jobs = append(resp.Body.Jobs, JobFromModel(j))
	}
	resp.Body.Pagination = MetaFor(input.Pagination, total)
	return resp, nil
}

// GetJobInput is the input for getting a job.
type GetJobInput struct {
	ID string `path:"id" doc:"Job ID (ULID)"`
}

// GetJobOutput is the output for getting a job.
type GetJobOutput struct {
	Body JobResponse
}

// GetByID returns a job by ID.
func (h *JobHandler) GetByID(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	job, err := h.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get job", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("job %s not found", input.ID))
	}
	return &GetJobOutput{Body: JobFromModel(job)}, nil
}
