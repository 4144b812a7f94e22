// Package migrations runs versioned schema migrations. Each migration has
// a sortable version string and applies inside a transaction together with
// its bookkeeping row, so a failed migration leaves no trace.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Migration is one schema step. Down is optional; migrations without it
// cannot be rolled back.
type Migration struct {
	Version     string
	Description string
	Up          func(tx *gorm.DB) error
	Down        func(tx *gorm.DB) error
}

// MigrationRecord is the bookkeeping row for an applied migration.
type MigrationRecord struct {
	ID          uint      `gorm:"primarykey"`
	Version     string    `gorm:"uniqueIndex;not null"`
	Description string    `gorm:"not null"`
	AppliedAt   time.Time `gorm:"not null"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// MigrationStatus pairs a registered migration with its applied state.
type MigrationStatus struct {
	Version     string
	Description string
	Applied     bool
	AppliedAt   *time.Time
}

// Migrator applies registered migrations in version order.
type Migrator struct {
	db         *gorm.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrator(db *gorm.DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: db, logger: logger}
}

// RegisterAll adds migrations to the set. Registration order does not
// matter; versions decide the run order.
func (m *Migrator) RegisterAll(migrations []Migration) {
	m.migrations = append(m.migrations, migrations...)
}

// Up applies every registered migration that has not run yet.
func (m *Migrator) Up(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.sorted() {
		if _, done := applied[mig.Version]; done {
			continue
		}

		m.logger.InfoContext(ctx, "applying migration",
			slog.String("version", mig.Version),
			slog.String("description", mig.Description))

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{
				Version:     mig.Version,
				Description: mig.Description,
				AppliedAt:   time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", mig.Version, err)
		}
	}
	return nil
}

// Down rolls back the most recently applied migration, if it supports it.
func (m *Migrator) Down(ctx context.Context) error {
	if _, err := m.applied(ctx); err != nil {
		return err
	}

	var record MigrationRecord
	if err := m.db.WithContext(ctx).Order("version DESC").First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m.logger.InfoContext(ctx, "no migrations to roll back")
			return nil
		}
		return fmt.Errorf("reading last migration: %w", err)
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == record.Version {
			mig = &m.migrations[i]
			break
		}
	}
	switch {
	case mig == nil:
		return fmt.Errorf("no definition registered for version %s", record.Version)
	case mig.Down == nil:
		return fmt.Errorf("migration %s has no rollback", record.Version)
	}

	m.logger.InfoContext(ctx, "rolling back migration",
		slog.String("version", mig.Version),
		slog.String("description", mig.Description))

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mig.Down(tx); err != nil {
			return err
		}
		return tx.Where("version = ?", mig.Version).Delete(&MigrationRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("rolling back migration %s: %w", mig.Version, err)
	}
	return nil
}

// Status reports every registered migration and when it was applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var statuses []MigrationStatus
	for _, mig := range m.sorted() {
		s := MigrationStatus{Version: mig.Version, Description: mig.Description}
		if rec, ok := applied[mig.Version]; ok {
			s.Applied = true
			s.AppliedAt = &rec.AppliedAt
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func (m *Migrator) sorted() []Migration {
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
	return m.migrations
}

// applied ensures the bookkeeping table exists and returns the applied
// migrations keyed by version.
func (m *Migrator) applied(ctx context.Context) (map[string]MigrationRecord, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("initializing migrations table: %w", err)
	}

	var records []MigrationRecord
	if err := m.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	byVersion := make(map[string]MigrationRecord, len(records))
	for _, rec := range records {
		byVersion[rec.Version] = rec
	}
	return byVersion, nil
}
