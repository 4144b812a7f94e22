package repository

import (
	"context"
	"testing"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestProfile(t *testing.T, repo ProfileRepository, name string, tier models.ProfileTier) *models.TranscodingProfile {
	t.Helper()
	p := &models.TranscodingProfile{
		Name: name,
		Tier: tier,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProfileRepo_SetDefault(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	first := createTestProfile(t, repo, "first", models.TierMedium)
	second := createTestProfile(t, repo, "second", models.TierLow)

	require.NoError(t, repo.SetDefault(ctx, first.ID))

	def, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, first.ID, def.ID)

	// Switching the default clears the old flag atomically.
	require.NoError(t, repo.SetDefault(ctx, second.ID))

	def, err = repo.GetDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestProfileRepo_SetDefault_Missing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)

	err := repo.SetDefault(context.Background(), models.NewULID())
	assert.Error(t, err)
}

func TestProfileRepo_GetEnabledByTier(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	createTestProfile(t, repo, "low-a", models.TierLow)
	createTestProfile(t, repo, "low-b", models.TierLow)
	createTestProfile(t, repo, "hd", models.TierHigh)

	disabled := &models.TranscodingProfile{
		Name:    "low-disabled",
		Tier:    models.TierLow,
		Enabled: models.BoolPtr(false),
	}
	require.NoError(t, repo.Create(ctx, disabled))

	profiles, err := repo.GetEnabledByTier(ctx, models.TierLow)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "low-a", profiles[0].Name)
	assert.Equal(t, "low-b", profiles[1].Name)
}

func TestProfileRepo_GetDefault_None(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)

	def, err := repo.GetDefault(context.Background())
	require.NoError(t, err)
	assert.Nil(t, def)
}
