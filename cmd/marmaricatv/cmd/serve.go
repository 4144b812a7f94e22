package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pokerist/marmaricatv-sub001/internal/cleanup"
	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/database"
	"github.com/pokerist/marmaricatv-sub001/internal/database/migrations"
	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	httpserver "github.com/pokerist/marmaricatv-sub001/internal/http"
	"github.com/pokerist/marmaricatv-sub001/internal/http/handlers"
	"github.com/pokerist/marmaricatv-sub001/internal/httpclient"
	"github.com/pokerist/marmaricatv-sub001/internal/importer"
	"github.com/pokerist/marmaricatv-sub001/internal/monitoring"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/pokerist/marmaricatv-sub001/internal/scheduler"
	"github.com/pokerist/marmaricatv-sub001/internal/transcoding"
	"github.com/pokerist/marmaricatv-sub001/internal/version"
)

const retentionCronSpec = "17 * * * *"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcoding orchestrator and admin API",
	Long: `Start the full service: database migrations, the encoder supervisor
with its watchdog, resource and stream health monitors, the cleanup
scheduler and the HTTP admin API. The process runs until it receives
SIGINT or SIGTERM, then stops all encoders gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	channelRepo := repository.NewChannelRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	jobRepo := repository.NewJobRepository(db.DB)
	deadSourceRepo := repository.NewDeadSourceRepository(db.DB)
	actionRepo := repository.NewActionLogRepository(db.DB)
	resourceRepo := repository.NewResourceRepository(db.DB)
	healthRepo := repository.NewStreamHealthRepository(db.DB)

	supervisor, err := transcoding.NewSupervisor(cfg.Transcoding, cfg.Storage, transcoding.Stores{
		Channels:    channelRepo,
		Profiles:    profileRepo,
		Jobs:        jobRepo,
		DeadSources: deadSourceRepo,
		Actions:     actionRepo,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}

	watchdog := transcoding.NewWatchdog(supervisor, logger)
	if err := watchdog.RecoverStale(ctx); err != nil {
		logger.Warn("stale job recovery incomplete", slog.Any("error", err))
	}
	go watchdog.Run(ctx)

	resourceMonitor := monitoring.NewResourceMonitor(cfg.Monitoring, cfg.Storage.OutputPath(),
		resourceRepo, func() int { return len(supervisor.Sessions()) }, logger)
	if cfg.Monitoring.Enabled {
		go resourceMonitor.Run(ctx)
	}

	ffprobePath, err := ffmpeg.Locate("ffprobe", cfg.Transcoding.FFprobePath)
	if err != nil {
		return fmt.Errorf("locating ffprobe: %w", err)
	}

	probeClientCfg := httpclient.DefaultConfig()
	probeClientCfg.Timeout = cfg.Health.ProbeTimeout
	probeClientCfg.UserAgent = version.UserAgent()
	probeClientCfg.Logger = logger

	prober := monitoring.NewProber(httpclient.New(probeClientCfg), ffmpeg.NewProber(ffprobePath), logger)
	healthMonitor := monitoring.NewHealthMonitor(cfg.Health, prober, channelRepo, healthRepo, logger)
	if cfg.Health.Enabled {
		go healthMonitor.Run(ctx)
	}

	cleaner := cleanup.NewCleaner(cfg.Cleanup, cfg.Storage, supervisor, logger)
	retention := cleanup.NewRetention(cfg.Cleanup, jobRepo, deadSourceRepo, actionRepo, logger)

	sched := scheduler.New(logger)
	if cfg.Cleanup.Enabled {
		if err := sched.Every(cfg.Cleanup.Interval, "cleanup-sweep", func(ctx context.Context) {
			cleaner.Sweep(ctx)
		}); err != nil {
			return fmt.Errorf("scheduling cleanup: %w", err)
		}
	}
	if err := sched.Cron(retentionCronSpec, "retention-prune", func(ctx context.Context) {
		retention.Prune(ctx)
		if _, err := resourceMonitor.PruneHistory(ctx); err != nil {
			logger.Warn("resource history prune failed", slog.Any("error", err))
		}
		if _, err := healthMonitor.PruneRecords(ctx); err != nil {
			logger.Warn("health record prune failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("scheduling retention: %w", err)
	}
	sched.Start()

	importClientCfg := httpclient.DefaultConfig()
	importClientCfg.Timeout = cfg.Import.HTTPTimeout
	importClientCfg.UserAgent = version.UserAgent()
	importClientCfg.Logger = logger
	importSvc := importer.New(cfg.Import, httpclient.New(importClientCfg), channelRepo, actionRepo, logger)

	server := httpserver.NewServer(cfg.Server, logger, version.Version)
	handlers.RegisterLiveness(server.Router(), version.Version)
	server.ServeStreams(cfg.Storage.OutputPath())

	api := server.API()
	handlers.NewChannelHandler(channelRepo, profileRepo, supervisor).Register(api)
	handlers.NewProfileHandler(profileRepo).Register(api)
	handlers.NewJobHandler(jobRepo, supervisor).Register(api)
	handlers.NewBulkHandler(supervisor).Register(api)
	handlers.NewSystemHandler(db, resourceMonitor, supervisor, cleaner).Register(api)
	handlers.NewEventsHandler(deadSourceRepo, resourceRepo, actionRepo, healthMonitor).Register(api)
	handlers.NewImportHandler(importSvc).Register(api)

	logger.Info("marmaricatv started",
		slog.String("version", version.Version),
		slog.String("address", cfg.Server.Address()),
		slog.String("output", cfg.Storage.OutputPath()))

	serveErr := server.ListenAndServe(ctx)

	// The API is down; stop background work, then drain the encoders.
	sched.Stop(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	supervisor.Shutdown(shutdownCtx)

	if serveErr != nil {
		return fmt.Errorf("serving: %w", serveErr)
	}
	logger.Info("marmaricatv stopped")
	return nil
}
