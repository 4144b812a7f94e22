package handlers

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

func newProfileHandler(t *testing.T) (*ProfileHandler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if err := db.AutoMigrate(&models.TranscodingProfile{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewProfileHandler(repository.NewProfileRepository(db)), db
}

func TestProfileHandler_CreateDerivesTier(t *testing.T) {
	handler, _ := newProfileHandler(t)

	input := &CreateProfileInput{}
	input.Body = CreateProfileRequest{
		Name:       "sd-h264",
		VideoCodec: models.VideoCodecH264,
		AudioCodec: models.AudioCodecAAC,
		Resolution: "854x480",
	}

	output, err := handler.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Body.Tier != models.TierLow {
		t.Errorf("expected derived tier %q, got %q", models.TierLow, output.Body.Tier)
	}
	if !output.Body.Enabled {
		t.Error("expected profile to default to enabled")
	}
}

func TestProfileHandler_CreateRejectsDuplicateName(t *testing.T) {
	handler, _ := newProfileHandler(t)
	ctx := context.Background()

	input := &CreateProfileInput{}
	input.Body = CreateProfileRequest{Name: "dup", VideoCodec: models.VideoCodecCopy, AudioCodec: models.AudioCodecCopy}
	if _, err := handler.Create(ctx, input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := handler.Create(ctx, input); err == nil {
		t.Fatal("expected conflict error for duplicate name")
	}
}

func TestProfileHandler_DeleteProtectsSystemProfiles(t *testing.T) {
	handler, db := newProfileHandler(t)

	profile := &models.TranscodingProfile{
		Name:       "seeded",
		Tier:       models.TierCopy,
		VideoCodec: models.VideoCodecCopy,
		AudioCodec: models.AudioCodecCopy,
		IsSystem:   true,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("seeding profile: %v", err)
	}

	_, err := handler.Delete(context.Background(), &DeleteProfileInput{ID: profile.ID.String()})
	if err == nil {
		t.Fatal("expected error deleting system profile")
	}

	var count int64
	db.Model(&models.TranscodingProfile{}).Count(&count)
	if count != 1 {
		t.Errorf("expected profile to survive, count = %d", count)
	}
}

func TestProfileHandler_GetByIDNotFound(t *testing.T) {
	handler, _ := newProfileHandler(t)

	_, err := handler.GetByID(context.Background(), &GetProfileInput{ID: models.NewULID().String()})
	if err == nil {
		t.Fatal("expected not found error")
	}
}
