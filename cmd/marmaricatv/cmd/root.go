// Package cmd implements the CLI commands for marmaricatv.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/observability"
	"github.com/pokerist/marmaricatv-sub001/internal/version"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "marmaricatv",
	Short:   "Live channel transcoding orchestrator",
	Version: version.Short(),
	Long: `marmaricatv supervises a fleet of ffmpeg processes that transcode live
channel sources to HLS. It admits jobs against per-tier concurrency limits,
falls back to cheaper profiles on repeated encoder errors, quarantines dead
sources with scheduled recovery, and serves the transcoded output together
with an admin REST API.`,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set here instead of on the struct literal: initLogging reads the
	// root command's flags.
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// These flags are not bound to viper. Binding would make the flag's
	// default value shadow env and config values; instead Changed() gates
	// the override so precedence stays flag > env > config > default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.marmaricatv.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
}

// initConfig reads the config file and environment variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/marmaricatv")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".marmaricatv")
	}

	viper.SetEnvPrefix("MARMARICATV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging configures the process-wide slog logger. Source URLs carry
// credentials, so the observability logger's redaction must be installed
// before anything else logs.
//
// Priority order: CLI flags when explicitly set, then environment
// variables, then config file, then defaults.
func initLogging() error {
	level := viper.GetString("logging.level")
	format := viper.GetString("logging.format")

	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}

	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "json"
	}
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}

	logger := observability.NewLoggerWithWriter(config.LoggingConfig{
		Level:  strings.ToLower(level),
		Format: strings.ToLower(format),
	}, os.Stderr)
	logger = observability.WithApp(logger, version.ApplicationName, version.Version)
	observability.SetDefault(logger)

	return nil
}
