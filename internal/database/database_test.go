package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
)

func memoryConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    ":memory:",
	}
}

func TestNewSQLite(t *testing.T) {
	db, err := New(memoryConfig(), nil, nil)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite", db.Driver())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Driver = "oracle"
	_, err := New(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSQLiteDSNPragmas(t *testing.T) {
	dsn := sqliteDSN("marmaricatv.db")
	assert.True(t, strings.HasPrefix(dsn, "marmaricatv.db?"))
	assert.Contains(t, dsn, "journal_mode(WAL)")
	assert.Contains(t, dsn, "busy_timeout(30000)")
	assert.Contains(t, dsn, "foreign_keys(ON)")

	// A DSN that already has parameters keeps them.
	dsn = sqliteDSN("file:test.db?mode=memory")
	assert.True(t, strings.HasPrefix(dsn, "file:test.db?mode=memory&"))
}

func TestStats(t *testing.T) {
	db, err := New(memoryConfig(), nil, nil)
	require.NoError(t, err)
	defer db.Close()

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Contains(t, stats, "open_connections")
	assert.Contains(t, stats, "in_use")
}

func TestNewWithoutPreparedStatements(t *testing.T) {
	db, err := New(memoryConfig(), nil, &Options{PrepareStmt: false})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping(context.Background()))
}
