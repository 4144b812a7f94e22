package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

// Retention prunes the history tables: closed job rows, resolved dead-source
// events and audit entries past their configured lifetime. Resource snapshot
// and health record pruning belong to the monitors that own those tables.
type Retention struct {
	cfg         config.CleanupConfig
	jobs        repository.JobRepository
	deadSources repository.DeadSourceRepository
	actions     repository.ActionLogRepository
	logger      *slog.Logger
}

// NewRetention creates a retention pruner.
func NewRetention(cfg config.CleanupConfig, jobs repository.JobRepository, deadSources repository.DeadSourceRepository, actions repository.ActionLogRepository, logger *slog.Logger) *Retention {
	return &Retention{
		cfg:         cfg,
		jobs:        jobs,
		deadSources: deadSources,
		actions:     actions,
		logger:      logger.With(slog.String("component", "retention")),
	}
}

// Prune performs one pruning pass. Each table is pruned independently; a
// failure on one does not stop the others.
func (r *Retention) Prune(ctx context.Context) {
	now := time.Now()

	jobs, err := r.jobs.Prune(ctx, now.Add(-r.cfg.JobRetention))
	if err != nil {
		r.logger.Error("pruning job history", slog.Any("error", err))
	}

	// Resolved events age out with the jobs they belong to.
	events, err := r.deadSources.Prune(ctx, now.Add(-r.cfg.JobRetention))
	if err != nil {
		r.logger.Error("pruning dead source events", slog.Any("error", err))
	}

	actions, err := r.actions.Prune(ctx, now.Add(-r.cfg.ActionRetention))
	if err != nil {
		r.logger.Error("pruning action log", slog.Any("error", err))
	}

	if jobs > 0 || events > 0 || actions > 0 {
		r.logger.Info("history pruned",
			slog.Int64("jobs", jobs),
			slog.Int64("dead_source_events", events),
			slog.Int64("actions", actions))
	}
}
