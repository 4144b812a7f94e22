package importer

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
)

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-name="News One HD" tvg-logo="http://cdn.example.com/news.png" group-title="News" tvg-chno="101",News One
http://stream.example.com/news.m3u8
#EXTINF:-1 group-title="Sports",Sports Channel
http://stream.example.com/sports.m3u8
#EXTINF:-1,Sports Channel
http://stream.example.com/sports.m3u8
`

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Channel{}, &models.ActionLog{}))

	cfg := config.ImportConfig{BatchSize: 2, MaxPlaylistSize: 1 << 20}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(cfg, nil, repository.NewChannelRepository(db), repository.NewActionLogRepository(db), log)
	return svc, db
}

func TestImportCreatesChannels(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	result, err := svc.Import(ctx, strings.NewReader(testPlaylist), "test.m3u", models.ActorAPI)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Updated)

	var channels []models.Channel
	require.NoError(t, db.Order("number DESC").Find(&channels).Error)
	require.Len(t, channels, 2)
	assert.Equal(t, "News One HD", channels[0].Name)
	assert.Equal(t, 101, channels[0].Number)
	assert.Equal(t, "News", channels[0].Category)
	assert.Equal(t, "http://cdn.example.com/news.png", channels[0].LogoURL)
	assert.Equal(t, models.TranscodingStatusInactive, channels[0].TranscodingStatus)

	var action models.ActionLog
	require.NoError(t, db.First(&action).Error)
	assert.Equal(t, models.ActionImport, action.Action)
	assert.Equal(t, models.ActorAPI, action.Actor)
	assert.Contains(t, action.Detail, "2 created")
}

func TestImportIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader(testPlaylist), "test.m3u", models.ActorAPI)
	require.NoError(t, err)

	result, err := svc.Import(ctx, strings.NewReader(testPlaylist), "test.m3u", models.ActorAPI)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Zero(t, result.Updated)
	assert.Equal(t, 2, result.Unchanged)

	var count int64
	require.NoError(t, db.Model(&models.Channel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestImportRefreshesMetadata(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	existing := &models.Channel{
		Name:              "Old Name",
		SourceURL:         "http://stream.example.com/news.m3u8",
		TranscodingStatus: models.TranscodingStatusActive,
		TranscodedURL:     "http://out.example.com/ch/playlist.m3u8",
	}
	require.NoError(t, db.Create(existing).Error)

	result, err := svc.Import(ctx, strings.NewReader(testPlaylist), "test.m3u", models.ActorAPI)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)

	var ch models.Channel
	require.NoError(t, db.Where("source_url = ?", existing.SourceURL).First(&ch).Error)
	assert.Equal(t, "News One HD", ch.Name)
	assert.Equal(t, "News", ch.Category)
	// Import never touches transcoding state.
	assert.Equal(t, models.TranscodingStatusActive, ch.TranscodingStatus)
	assert.Equal(t, "http://out.example.com/ch/playlist.m3u8", ch.TranscodedURL)
}

func TestImportCountsMalformedLines(t *testing.T) {
	svc, _ := newTestService(t)

	input := "#EXTM3U\n#EXTINF:broken,Bad\n#EXTINF:-1,Good\nhttp://stream.example.com/good.m3u8\n"
	result, err := svc.Import(context.Background(), strings.NewReader(input), "bad.m3u", models.ActorSystem)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Malformed)
	assert.Equal(t, 1, result.Created)
}

func TestImportBatchesLargePlaylists(t *testing.T) {
	svc, db := newTestService(t)

	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("#EXTINF:-1,Channel ")
		sb.WriteByte(byte('A' + i))
		sb.WriteString("\nhttp://stream.example.com/ch-")
		sb.WriteByte(byte('a' + i))
		sb.WriteString(".m3u8\n")
	}

	result, err := svc.Import(context.Background(), strings.NewReader(sb.String()), "big.m3u", models.ActorSystem)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Created)

	var count int64
	require.NoError(t, db.Model(&models.Channel{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}
