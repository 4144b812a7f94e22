// Package migrations provides database migration management for marmaricatv.
package migrations

import (
	"gorm.io/gorm"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// AllMigrations returns all registered migrations in order.
// - 001: Schema creation using GORM AutoMigrate
// - 002: Default transcoding profiles for each quality tier
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002DefaultProfiles(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			// AutoMigrate all models in dependency order
			return tx.AutoMigrate(
				// Catalog
				&models.TranscodingProfile{},
				&models.Channel{},

				// Supervision
				&models.TranscodingJob{},
				&models.DeadSourceEvent{},

				// Monitoring
				&models.ResourceSnapshot{},
				&models.ResourceAlert{},
				&models.StreamHealthRecord{},

				// Audit
				&models.ActionLog{},
			)
		},
		Down: func(tx *gorm.DB) error {
			// Drop tables in reverse dependency order
			tables := []string{
				"action_logs",
				"stream_health_records",
				"resource_alerts",
				"resource_snapshots",
				"dead_source_events",
				"transcoding_jobs",
				"channels",
				"transcoding_profiles",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// migration002DefaultProfiles seeds one profile per quality tier so the
// fallback ladder always has a rung to land on.
func migration002DefaultProfiles() Migration {
	return Migration{
		Version:     "002",
		Description: "Insert default transcoding profiles",
		Up: func(tx *gorm.DB) error {
			profiles := []models.TranscodingProfile{
				{
					Name:        "Pass-through",
					Description: "Remux the source stream without re-encoding",
					Tier:        models.TierCopy,
					VideoCodec:  models.VideoCodecCopy,
					AudioCodec:  models.AudioCodecCopy,
					IsSystem:    true,
				},
				{
					Name:         "SD 480p",
					Description:  "Low-cost H.264 encode capped at 480p",
					Tier:         models.TierLow,
					VideoCodec:   models.VideoCodecH264,
					AudioCodec:   models.AudioCodecAAC,
					VideoBitrate: "800k",
					AudioBitrate: "96k",
					Resolution:   "854x480",
					Preset:       "veryfast",
					IsSystem:     true,
				},
				{
					Name:         "HD 720p",
					Description:  "Balanced H.264 encode capped at 720p",
					Tier:         models.TierMedium,
					VideoCodec:   models.VideoCodecH264,
					AudioCodec:   models.AudioCodecAAC,
					VideoBitrate: "1400k",
					AudioBitrate: "128k",
					Resolution:   "1280x720",
					Preset:       "veryfast",
					IsDefault:    true,
					IsSystem:     true,
				},
				{
					Name:         "Full HD 1080p",
					Description:  "Full quality H.264 encode at 1080p",
					Tier:         models.TierHigh,
					VideoCodec:   models.VideoCodecH264,
					AudioCodec:   models.AudioCodecAAC,
					VideoBitrate: "2800k",
					AudioBitrate: "192k",
					Resolution:   "1920x1080",
					Preset:       "veryfast",
					IsSystem:     true,
				},
			}

			for _, profile := range profiles {
				if err := tx.Create(&profile).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(tx *gorm.DB) error {
			return tx.Where("is_system = ?", true).Delete(&models.TranscodingProfile{}).Error
		},
	}
}
