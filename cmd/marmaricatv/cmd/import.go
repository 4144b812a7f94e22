package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/database"
	"github.com/pokerist/marmaricatv-sub001/internal/database/migrations"
	"github.com/pokerist/marmaricatv-sub001/internal/httpclient"
	"github.com/pokerist/marmaricatv-sub001/internal/importer"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/pokerist/marmaricatv-sub001/internal/version"
)

var importCmd = &cobra.Command{
	Use:   "import FILE|URL",
	Short: "Import an M3U playlist into the channel catalog",
	Long: `Import channels from an M3U/M3U8 playlist. The argument is a local file
path or an HTTP(S) URL; gzip, bzip2 and xz compressed playlists are handled
transparently.

Existing channels are matched by source URL and get their metadata
refreshed. Transcoding state is never touched by an import.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	source := args[0]
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(cmd.Context()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Import.HTTPTimeout
	httpCfg.UserAgent = version.UserAgent()
	httpCfg.Logger = logger

	svc := importer.New(cfg.Import, httpclient.New(httpCfg),
		repository.NewChannelRepository(db.DB),
		repository.NewActionLogRepository(db.DB),
		logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var result importer.Result
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		result, err = svc.ImportURL(ctx, source, models.ActorSystem)
	} else {
		result, err = svc.ImportFile(ctx, source, models.ActorSystem)
	}
	if err != nil {
		return fmt.Errorf("importing playlist: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Imported %s: %s\n", source, result)
	return nil
}
