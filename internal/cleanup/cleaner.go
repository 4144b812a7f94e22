// Package cleanup bounds the disk and history footprint of the engine.
//
// Encoders rotate their own segment window while they run, but the HLS list
// size is a playback window, not a disk guarantee: a crashed or wedged job
// leaves its whole directory behind, and delete-segment flags do not cover
// files written before the current invocation. The cleaner owns everything
// below the output root; the retention pass owns the history tables.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/internal/transcoding"
)

const channelDirPrefix = "channel_"

// SessionView is the slice of the supervisor the cleaner needs: which
// channels own a live encoder right now.
type SessionView interface {
	HasSession(channelID models.ULID) bool
	Sessions() []transcoding.SessionInfo
}

// Result summarizes one filesystem sweep.
type Result struct {
	SegmentsRemoved int `json:"segments_removed"`
	OrphansRemoved  int `json:"orphans_removed"`
	Errors          int `json:"errors"`
}

// Cleaner prunes stale segments of live jobs and removes orphaned channel
// directories.
type Cleaner struct {
	cfg      config.CleanupConfig
	storage  config.StorageConfig
	sessions SessionView
	logger   *slog.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner(cfg config.CleanupConfig, storage config.StorageConfig, sessions SessionView, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		cfg:      cfg,
		storage:  storage,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "cleanup")),
	}
}

// Sweep performs one pass over the output tree. Per-directory failures are
// counted and logged, not fatal; the next cycle retries.
func (c *Cleaner) Sweep(ctx context.Context) Result {
	var res Result

	for _, info := range c.sessions.Sessions() {
		if ctx.Err() != nil {
			return res
		}
		removed, err := c.pruneSegments(info)
		if err != nil {
			c.logger.Warn("pruning segments",
				slog.String("channel_id", info.ChannelID.String()),
				slog.Any("error", err))
			res.Errors++
			continue
		}
		res.SegmentsRemoved += removed
	}

	orphans, errs := c.removeOrphans(ctx)
	res.OrphansRemoved = orphans
	res.Errors += errs

	if res.SegmentsRemoved > 0 || res.OrphansRemoved > 0 {
		c.logger.Info("cleanup sweep finished",
			slog.Int("segments_removed", res.SegmentsRemoved),
			slog.Int("orphans_removed", res.OrphansRemoved),
			slog.Int("errors", res.Errors))
	}
	return res
}

// pruneSegments deletes a live job's segment files that are beyond the
// keep-count, older than the max age, and no longer referenced by the
// job's manifest. All three must hold; the newest keep-count files survive
// regardless of age.
func (c *Cleaner) pruneSegments(info transcoding.SessionInfo) (int, error) {
	protected := c.referencedSegments(info)

	entries, err := os.ReadDir(info.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			// The job may be mid-teardown.
			return 0, nil
		}
		return 0, fmt.Errorf("reading output directory: %w", err)
	}

	type segment struct {
		name    string
		modTime time.Time
	}
	var segments []segment
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ts") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		segments = append(segments, segment{name: entry.Name(), modTime: fi.ModTime()})
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].modTime.After(segments[j].modTime)
	})

	cutoff := time.Now().Add(-c.cfg.SegmentMaxAge)
	removed := 0
	for i, seg := range segments {
		if i < c.cfg.SegmentKeepCount {
			continue
		}
		if seg.modTime.After(cutoff) {
			continue
		}
		if _, ok := protected[seg.name]; ok {
			continue
		}
		path := filepath.Join(info.OutputDir, seg.name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("removing segment",
				slog.String("path", path),
				slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, nil
}

// referencedSegments parses the job's live manifest. Segments the playlist
// still references are never deleted no matter their age; a stalled encoder
// holding an old window must not have its playback window pulled out from
// under it.
func (c *Cleaner) referencedSegments(info transcoding.SessionInfo) map[string]struct{} {
	refs := make(map[string]struct{})

	data, err := os.ReadFile(filepath.Join(info.OutputDir, transcoding.PlaylistName))
	if err != nil {
		// No manifest yet, nothing to protect.
		return refs
	}

	pl, err := playlist.Unmarshal(data)
	if err != nil {
		c.logger.Debug("unparseable manifest, protecting nothing",
			slog.String("channel_id", info.ChannelID.String()),
			slog.Any("error", err))
		return refs
	}

	media, ok := pl.(*playlist.Media)
	if !ok {
		return refs
	}
	for _, seg := range media.Segments {
		refs[filepath.Base(seg.URI)] = struct{}{}
	}
	return refs
}

// removeOrphans deletes channel directories with no live session that have
// not been written to for the orphan age. Directories whose name does not
// carry a parseable channel ID are left alone.
func (c *Cleaner) removeOrphans(ctx context.Context) (removed, errs int) {
	root := c.storage.OutputPath()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0
		}
		c.logger.Warn("reading output root", slog.Any("error", err))
		return 0, 1
	}

	cutoff := time.Now().Add(-c.cfg.OrphanAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, errs
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), channelDirPrefix) {
			continue
		}

		id, err := models.ParseULID(strings.TrimPrefix(entry.Name(), channelDirPrefix))
		if err != nil {
			continue
		}
		if c.sessions.HasSession(id) {
			continue
		}

		fi, err := entry.Info()
		if err != nil || fi.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			c.logger.Warn("removing orphaned directory",
				slog.String("path", path),
				slog.Any("error", err))
			errs++
			continue
		}
		c.logger.Info("removed orphaned directory",
			slog.String("path", path),
			slog.String("channel_id", id.String()))
		removed++
	}
	return removed, errs
}
