// Package importer loads channel playlists into the catalog. Imports are
// idempotent: channels are keyed by source URL, metadata is refreshed on
// re-import and transcoding state is never touched.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/httpclient"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/observability"
	"github.com/pokerist/marmaricatv-sub001/internal/repository"
	"github.com/pokerist/marmaricatv-sub001/pkg/m3u"
)

// Result summarizes one import run.
type Result struct {
	// Created is the number of new channels.
	Created int `json:"created"`

	// Updated is the number of existing channels whose metadata changed.
	Updated int `json:"updated"`

	// Unchanged is the number of entries that matched an existing channel
	// with identical metadata.
	Unchanged int `json:"unchanged"`

	// Skipped counts duplicate URLs within the playlist itself.
	Skipped int `json:"skipped"`

	// Malformed counts playlist lines that could not be parsed.
	Malformed int `json:"malformed"`
}

// Total returns the number of entries that mapped to a channel.
func (r Result) Total() int {
	return r.Created + r.Updated + r.Unchanged
}

func (r Result) String() string {
	return fmt.Sprintf("%d created, %d updated, %d unchanged, %d skipped, %d malformed",
		r.Created, r.Updated, r.Unchanged, r.Skipped, r.Malformed)
}

// Service imports playlists from URLs, files or raw readers.
type Service struct {
	cfg      config.ImportConfig
	client   *httpclient.Client
	channels repository.ChannelRepository
	actions  repository.ActionLogRepository
	logger   *slog.Logger
}

// New creates an import service.
func New(cfg config.ImportConfig, client *httpclient.Client, channels repository.ChannelRepository, actions repository.ActionLogRepository, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		client:   client,
		channels: channels,
		actions:  actions,
		logger:   observability.WithComponent(logger, "importer"),
	}
}

// ImportURL downloads a playlist and imports it. The download is capped at
// the configured maximum playlist size.
func (s *Service) ImportURL(ctx context.Context, url string, actor models.ActionActor) (Result, error) {
	resp, err := s.client.GetRange(ctx, url, int64(s.cfg.MaxPlaylistSize))
	if err != nil {
		return Result{}, fmt.Errorf("downloading playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("downloading playlist: unexpected status %d", resp.StatusCode)
	}
	return s.Import(ctx, io.LimitReader(resp.Body, int64(s.cfg.MaxPlaylistSize)), url, actor)
}

// ImportFile imports a playlist from the local filesystem.
func (s *Service) ImportFile(ctx context.Context, path string, actor models.ActionActor) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening playlist: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f, path, actor)
}

// Import parses the playlist and reconciles it against the channel catalog.
// Compressed input is handled transparently. Source describes where the
// playlist came from and only appears in logs and the audit record.
func (s *Service) Import(ctx context.Context, r io.Reader, source string, actor models.ActionActor) (Result, error) {
	existing, err := s.channels.GetAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading existing channels: %w", err)
	}
	byURL := make(map[string]*models.Channel, len(existing))
	for _, ch := range existing {
		byURL[ch.SourceURL] = ch
	}

	var result Result
	seen := make(map[string]struct{})
	var pending []*models.Channel

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.channels.CreateBatch(ctx, pending); err != nil {
			return fmt.Errorf("creating channels: %w", err)
		}
		result.Created += len(pending)
		pending = pending[:0]
		return nil
	}

	onEntry := func(e *m3u.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		url := strings.TrimSpace(e.URL)
		if url == "" {
			result.Malformed++
			return nil
		}
		if _, dup := seen[url]; dup {
			result.Skipped++
			return nil
		}
		seen[url] = struct{}{}

		if ch, ok := byURL[url]; ok {
			if applyMetadata(ch, e) {
				if err := s.channels.Update(ctx, ch); err != nil {
					return fmt.Errorf("updating channel %q: %w", ch.Name, err)
				}
				result.Updated++
			} else {
				result.Unchanged++
			}
			return nil
		}

		ch := &models.Channel{
			Name:      e.Name(),
			Number:    e.Number,
			SourceURL: url,
			LogoURL:   e.LogoURL,
			Category:  e.Group,
		}
		byURL[url] = ch
		pending = append(pending, ch)
		if len(pending) >= s.cfg.BatchSize {
			return flush()
		}
		return nil
	}

	onError := func(line int, err error) {
		result.Malformed++
		s.logger.Warn("skipping malformed playlist line",
			slog.String("source", source),
			slog.Int("line", line),
			slog.Any("error", err))
	}

	if err := m3u.ParseCompressed(r, onEntry, onError); err != nil {
		return result, fmt.Errorf("parsing playlist: %w", err)
	}
	if err := flush(); err != nil {
		return result, err
	}

	s.logger.Info("playlist import finished",
		slog.String("source", source),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("skipped", result.Skipped),
		slog.Int("malformed", result.Malformed))

	entry := &models.ActionLog{
		Actor:  actor,
		Action: models.ActionImport,
		Detail: fmt.Sprintf("source=%s %s", source, result),
	}
	if err := s.actions.Create(ctx, entry); err != nil {
		s.logger.Warn("recording import action failed", slog.Any("error", err))
	}
	return result, nil
}

// applyMetadata copies playlist metadata onto an existing channel and
// reports whether anything changed. Transcoding fields are left alone.
func applyMetadata(ch *models.Channel, e *m3u.Entry) bool {
	changed := false
	if name := e.Name(); name != "" && name != ch.Name {
		ch.Name = name
		changed = true
	}
	if e.Number != 0 && e.Number != ch.Number {
		ch.Number = e.Number
		changed = true
	}
	if e.LogoURL != "" && e.LogoURL != ch.LogoURL {
		ch.LogoURL = e.LogoURL
		changed = true
	}
	if e.Group != "" && e.Group != ch.Category {
		ch.Category = e.Group
		changed = true
	}
	return changed
}
