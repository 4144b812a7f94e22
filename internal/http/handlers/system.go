package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pokerist/marmaricatv-sub001/internal/cleanup"
	"github.com/pokerist/marmaricatv-sub001/internal/database"
	"github.com/pokerist/marmaricatv-sub001/internal/monitoring"
	"github.com/pokerist/marmaricatv-sub001/internal/transcoding"
)

// SystemHandler handles system health and storage endpoints.
type SystemHandler struct {
	db         *database.DB
	resources  *monitoring.ResourceMonitor
	supervisor *transcoding.Supervisor
	cleaner    *cleanup.Cleaner
	startedAt  time.Time
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(db *database.DB, resources *monitoring.ResourceMonitor, supervisor *transcoding.Supervisor, cleaner *cleanup.Cleaner) *SystemHandler {
	return &SystemHandler{
		db:         db,
		resources:  resources,
		supervisor: supervisor,
		cleaner:    cleaner,
		startedAt:  time.Now(),
	}
}

// Register registers the system routes with the API.
func (h *SystemHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getSystemHealth",
		Method:      "GET",
		Path:        "/api/v1/system/health",
		Summary:     "System health",
		Description: "Returns the latest resource reading, tier occupancy and database status",
		Tags:        []string{"System"},
	}, h.Health)

	huma.Register(api, huma.Operation{
		OperationID: "getSystemStorage",
		Method:      "GET",
		Path:        "/api/v1/system/storage",
		Summary:     "Storage usage",
		Description: "Returns output filesystem capacity and per-channel directory sizes",
		Tags:        []string{"System"},
	}, h.Storage)
}

// SystemHealthInput is the input for the system health endpoint.
type SystemHealthInput struct{}

// SystemHealthOutput is the output for the system health endpoint.
type SystemHealthOutput struct {
	Body struct {
		Resources     *monitoring.Reading        `json:"resources,omitempty"`
		Occupancy     []transcoding.TierOccupancy `json:"occupancy"`
		Database      string                     `json:"database"`
		UptimeSeconds int64                      `json:"uptime_seconds"`
	}
}

// Health returns the latest resource reading and tier occupancy. A missing
// reading means the monitor has not sampled yet; the endpoint still answers.
func (h *SystemHandler) Health(ctx context.Context, input *SystemHealthInput) (*SystemHealthOutput, error) {
	resp := &SystemHealthOutput{}

	if reading, ok := h.resources.Current(); ok {
		resp.Body.Resources = &reading
	}
	resp.Body.Occupancy = h.supervisor.Occupancy()
	resp.Body.UptimeSeconds = int64(time.Since(h.startedAt).Seconds())

	resp.Body.Database = "ok"
	if err := h.db.Ping(ctx); err != nil {
		resp.Body.Database = err.Error()
	}
	return resp, nil
}

// SystemStorageInput is the input for the storage endpoint.
type SystemStorageInput struct{}

// SystemStorageOutput is the output for the storage endpoint.
type SystemStorageOutput struct {
	Body cleanup.StorageStats
}

// Storage reports output filesystem usage.
func (h *SystemHandler) Storage(ctx context.Context, input *SystemStorageInput) (*SystemStorageOutput, error) {
	stats, err := h.cleaner.Stats(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to collect storage stats", err)
	}
	return &SystemStorageOutput{Body: stats}, nil
}
