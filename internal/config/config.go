// Package config provides configuration management for marmaricatv using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute

	defaultErrorThreshold    = 5
	defaultConfirmDelay      = 3 * time.Second
	defaultRestartDelay      = 2 * time.Second
	defaultStaggerDelay      = 2 * time.Second
	defaultMigrationStagger  = 5 * time.Second
	defaultBulkGroupSize     = 5
	defaultBulkGroupCooldown = 10 * time.Second
	defaultWatchdogInterval  = time.Minute
	defaultWatchdogMaxDelay  = 10 * time.Minute

	defaultMaxCopyJobs   = 20
	defaultMaxLowJobs    = 8
	defaultMaxMediumJobs = 4
	defaultMaxHighJobs   = 2

	defaultDeadSourceWindow   = 30 * time.Second
	defaultDeadSourceErrors   = 5
	defaultDeadSourceCooldown = 5 * time.Minute
	defaultDeadSourceRetries  = 3

	defaultMonitorInterval   = 5 * time.Second
	defaultAlertCooldown     = 5 * time.Minute
	defaultSnapshotRetention = 24 * time.Hour
	defaultSnapshotRate      = 0.1

	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 10 * time.Second
	defaultUptimeWindow  = 24 * time.Hour
	defaultProbeParallel = 8

	defaultCleanupInterval  = 5 * time.Minute
	defaultSegmentKeepCount = 30
	defaultSegmentMaxAge    = 30 * time.Minute
	defaultOrphanAge        = time.Hour
	defaultJobRetention     = 7 * 24 * time.Hour
	defaultActionRetention  = 14 * 24 * time.Hour

	defaultImportTimeout      = 60 * time.Second
	defaultImportBatch        = 500
	defaultMaxPlaylistBytes   = 50 * 1024 * 1024 // 50MB
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Transcoding TranscodingConfig `mapstructure:"transcoding"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Health      HealthConfig      `mapstructure:"health"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	Import      ImportConfig      `mapstructure:"import"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration. Every transcoding job writes
// its HLS playlist and segments under a channel-scoped directory below OutputPath.
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	OutputDir string `mapstructure:"output_dir"`
	TempDir   string `mapstructure:"temp_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// TranscodingConfig holds encoder supervision configuration.
type TranscodingConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`  // Path to ffmpeg binary (empty = use PATH)
	FFprobePath string `mapstructure:"ffprobe_path"` // Path to ffprobe binary (empty = use PATH)

	// ErrorThreshold is the lifetime stderr error count at which a job
	// falls back to the next lower profile tier.
	ErrorThreshold int `mapstructure:"error_threshold"`
	// ConfirmDelay is how long after spawn a job must still be alive
	// before it is promoted to running.
	ConfirmDelay time.Duration `mapstructure:"confirm_delay"`
	// RestartDelay is the pause between stop and start during a restart,
	// giving the OS time to release file handles.
	RestartDelay time.Duration `mapstructure:"restart_delay"`

	StaggerDelay      time.Duration `mapstructure:"stagger_delay"`
	MigrationStagger  time.Duration `mapstructure:"migration_stagger"`
	BulkGroupSize     int           `mapstructure:"bulk_group_size"`
	BulkGroupCooldown time.Duration `mapstructure:"bulk_group_cooldown"`

	Limits     TierLimitsConfig `mapstructure:"limits"`
	DeadSource DeadSourceConfig `mapstructure:"dead_source"`

	WatchdogInterval time.Duration `mapstructure:"watchdog_interval"`
	WatchdogMaxDelay time.Duration `mapstructure:"watchdog_max_delay"`
}

// TierLimitsConfig holds per-quality-tier concurrency ceilings.
// A value of 0 disables the tier entirely.
type TierLimitsConfig struct {
	Copy   int `mapstructure:"copy"`
	Low    int `mapstructure:"low"`
	Medium int `mapstructure:"medium"`
	High   int `mapstructure:"high"`
}

// Total returns the sum of all tier ceilings.
func (c *TierLimitsConfig) Total() int {
	return c.Copy + c.Low + c.Medium + c.High
}

// DeadSourceConfig holds dead-source detection and recovery configuration.
type DeadSourceConfig struct {
	// Window is the rolling window over which matching errors are counted.
	Window time.Duration `mapstructure:"window"`
	// Threshold is the number of matching errors within Window that
	// declares the source dead.
	Threshold int `mapstructure:"threshold"`
	// Cooldown is how long a quarantined channel waits before an
	// automatic recovery attempt.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// MaxRetries is the number of automatic recovery attempts before the
	// channel is marked permanently offline.
	MaxRetries int `mapstructure:"max_retries"`
}

// MonitoringConfig holds host resource monitoring configuration.
type MonitoringConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`

	CPUWarning     float64 `mapstructure:"cpu_warning"`
	CPUCritical    float64 `mapstructure:"cpu_critical"`
	MemoryWarning  float64 `mapstructure:"memory_warning"`
	MemoryCritical float64 `mapstructure:"memory_critical"`
	DiskWarning    float64 `mapstructure:"disk_warning"`
	DiskCritical   float64 `mapstructure:"disk_critical"`

	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
	Retention     time.Duration `mapstructure:"retention"`
	// SnapshotRate is the fraction of samples persisted as history, 0..1.
	SnapshotRate float64 `mapstructure:"snapshot_rate"`
}

// HealthConfig holds stream availability probing configuration.
type HealthConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ProbeInterval       time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
	UptimeWindow        time.Duration `mapstructure:"uptime_window"`
	MaxConcurrentProbes int64         `mapstructure:"max_concurrent_probes"`
}

// CleanupConfig holds output directory cleanup configuration.
type CleanupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	// SegmentKeepCount is the number of newest segments always retained
	// per live job regardless of age.
	SegmentKeepCount int           `mapstructure:"segment_keep_count"`
	SegmentMaxAge    time.Duration `mapstructure:"segment_max_age"`
	// OrphanAge is how old a channel directory without a live job must be
	// before it is removed entirely.
	OrphanAge       time.Duration `mapstructure:"orphan_age"`
	JobRetention    time.Duration `mapstructure:"job_retention"`
	ActionRetention time.Duration `mapstructure:"action_retention"`
}

// ImportConfig holds playlist import configuration.
type ImportConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	BatchSize   int           `mapstructure:"batch_size"`
	// MaxPlaylistSize is the maximum allowed size for a downloaded playlist.
	// Supports human-readable values like "50MB", "1GB", or raw byte counts.
	MaxPlaylistSize ByteSize `mapstructure:"max_playlist_size"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with MARMARICATV_ and use underscores
// for nesting. Example: MARMARICATV_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/marmaricatv")
		v.AddConfigPath("$HOME/.marmaricatv")
	}

	// Environment variable settings
	v.SetEnvPrefix("MARMARICATV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "marmaricatv.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.output_dir", "streams")
	v.SetDefault("storage.temp_dir", "temp")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Transcoding defaults
	v.SetDefault("transcoding.ffmpeg_path", "")
	v.SetDefault("transcoding.ffprobe_path", "")
	v.SetDefault("transcoding.error_threshold", defaultErrorThreshold)
	v.SetDefault("transcoding.confirm_delay", defaultConfirmDelay)
	v.SetDefault("transcoding.restart_delay", defaultRestartDelay)
	v.SetDefault("transcoding.stagger_delay", defaultStaggerDelay)
	v.SetDefault("transcoding.migration_stagger", defaultMigrationStagger)
	v.SetDefault("transcoding.bulk_group_size", defaultBulkGroupSize)
	v.SetDefault("transcoding.bulk_group_cooldown", defaultBulkGroupCooldown)
	v.SetDefault("transcoding.limits.copy", defaultMaxCopyJobs)
	v.SetDefault("transcoding.limits.low", defaultMaxLowJobs)
	v.SetDefault("transcoding.limits.medium", defaultMaxMediumJobs)
	v.SetDefault("transcoding.limits.high", defaultMaxHighJobs)
	v.SetDefault("transcoding.dead_source.window", defaultDeadSourceWindow)
	v.SetDefault("transcoding.dead_source.threshold", defaultDeadSourceErrors)
	v.SetDefault("transcoding.dead_source.cooldown", defaultDeadSourceCooldown)
	v.SetDefault("transcoding.dead_source.max_retries", defaultDeadSourceRetries)
	v.SetDefault("transcoding.watchdog_interval", defaultWatchdogInterval)
	v.SetDefault("transcoding.watchdog_max_delay", defaultWatchdogMaxDelay)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.interval", defaultMonitorInterval)
	v.SetDefault("monitoring.cpu_warning", 70.0)
	v.SetDefault("monitoring.cpu_critical", 90.0)
	v.SetDefault("monitoring.memory_warning", 75.0)
	v.SetDefault("monitoring.memory_critical", 90.0)
	v.SetDefault("monitoring.disk_warning", 80.0)
	v.SetDefault("monitoring.disk_critical", 95.0)
	v.SetDefault("monitoring.alert_cooldown", defaultAlertCooldown)
	v.SetDefault("monitoring.retention", defaultSnapshotRetention)
	v.SetDefault("monitoring.snapshot_rate", defaultSnapshotRate)

	// Health defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.probe_interval", defaultProbeInterval)
	v.SetDefault("health.probe_timeout", defaultProbeTimeout)
	v.SetDefault("health.uptime_window", defaultUptimeWindow)
	v.SetDefault("health.max_concurrent_probes", defaultProbeParallel)

	// Cleanup defaults
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval", defaultCleanupInterval)
	v.SetDefault("cleanup.segment_keep_count", defaultSegmentKeepCount)
	v.SetDefault("cleanup.segment_max_age", defaultSegmentMaxAge)
	v.SetDefault("cleanup.orphan_age", defaultOrphanAge)
	v.SetDefault("cleanup.job_retention", defaultJobRetention)
	v.SetDefault("cleanup.action_retention", defaultActionRetention)

	// Import defaults
	v.SetDefault("import.http_timeout", defaultImportTimeout)
	v.SetDefault("import.batch_size", defaultImportBatch)
	v.SetDefault("import.max_playlist_size", defaultMaxPlaylistBytes)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	validDBLevels := map[string]bool{"silent": true, "error": true, "warn": true, "info": true}
	if !validDBLevels[c.Database.LogLevel] {
		return fmt.Errorf("database.log_level must be one of: silent, error, warn, info")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns must not be negative")
	}

	// Storage validation
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Transcoding validation
	if c.Transcoding.ErrorThreshold < 1 {
		return fmt.Errorf("transcoding.error_threshold must be at least 1")
	}
	if c.Transcoding.Limits.Total() < 1 {
		return fmt.Errorf("transcoding.limits must allow at least one job across all tiers")
	}
	if c.Transcoding.BulkGroupSize < 1 {
		return fmt.Errorf("transcoding.bulk_group_size must be at least 1")
	}
	if c.Transcoding.DeadSource.Threshold < 1 {
		return fmt.Errorf("transcoding.dead_source.threshold must be at least 1")
	}
	if c.Transcoding.DeadSource.Window <= 0 {
		return fmt.Errorf("transcoding.dead_source.window must be positive")
	}
	if c.Transcoding.DeadSource.MaxRetries < 0 {
		return fmt.Errorf("transcoding.dead_source.max_retries must not be negative")
	}

	// Monitoring validation
	if c.Monitoring.Interval <= 0 {
		return fmt.Errorf("monitoring.interval must be positive")
	}
	if c.Monitoring.CPUWarning >= c.Monitoring.CPUCritical {
		return fmt.Errorf("monitoring.cpu_warning must be below cpu_critical")
	}
	if c.Monitoring.MemoryWarning >= c.Monitoring.MemoryCritical {
		return fmt.Errorf("monitoring.memory_warning must be below memory_critical")
	}
	if c.Monitoring.DiskWarning >= c.Monitoring.DiskCritical {
		return fmt.Errorf("monitoring.disk_warning must be below disk_critical")
	}
	if c.Monitoring.SnapshotRate < 0 || c.Monitoring.SnapshotRate > 1 {
		return fmt.Errorf("monitoring.snapshot_rate must be between 0 and 1")
	}

	// Health validation
	if c.Health.ProbeInterval <= 0 {
		return fmt.Errorf("health.probe_interval must be positive")
	}
	if c.Health.MaxConcurrentProbes < 1 {
		return fmt.Errorf("health.max_concurrent_probes must be at least 1")
	}

	// Cleanup validation
	if c.Cleanup.SegmentKeepCount < 0 {
		return fmt.Errorf("cleanup.segment_keep_count must not be negative")
	}

	// Import validation
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OutputPath returns the full path to the stream output directory.
func (c *StorageConfig) OutputPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.OutputDir)
}

// TempPath returns the full path to the temp directory.
func (c *StorageConfig) TempPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.TempDir)
}

// ChannelDir returns the output directory for a channel's transcoded stream.
// Every job for the channel writes its playlist and segments here.
func (c *StorageConfig) ChannelDir(channelID string) string {
	return fmt.Sprintf("%s/channel_%s", c.OutputPath(), channelID)
}
