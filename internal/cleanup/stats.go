package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/pokerist/marmaricatv-sub001/internal/models"
	"github.com/pokerist/marmaricatv-sub001/pkg/bytesize"
)

// ChannelUsage is one channel directory's footprint under the output root.
type ChannelUsage struct {
	ChannelID models.ULID `json:"channel_id"`
	Path      string      `json:"path"`
	Bytes     int64       `json:"bytes"`
	Size      string      `json:"size"`
	Segments  int         `json:"segments"`
	Live      bool        `json:"live"`
}

// StorageStats describes disk usage of the output filesystem and the
// per-channel directories on it, largest first.
type StorageStats struct {
	OutputRoot string `json:"output_root"`

	DiskTotalBytes uint64 `json:"disk_total_bytes"`
	DiskUsedBytes  uint64 `json:"disk_used_bytes"`
	DiskFreeBytes  uint64 `json:"disk_free_bytes"`
	DiskTotal      string `json:"disk_total"`
	DiskUsed       string `json:"disk_used"`
	DiskFree       string `json:"disk_free"`

	OutputBytes string `json:"output_bytes"`

	Channels []ChannelUsage `json:"channels"`
}

// Stats walks the output root and reports per-channel directory sizes
// together with the filesystem's capacity. Unreadable entries are skipped;
// the numbers are operator guidance, not an audit.
func (c *Cleaner) Stats(ctx context.Context) (StorageStats, error) {
	root := c.storage.OutputPath()
	stats := StorageStats{OutputRoot: root}

	if usage, err := disk.UsageWithContext(ctx, root); err == nil {
		stats.DiskTotalBytes = usage.Total
		stats.DiskUsedBytes = usage.Used
		stats.DiskFreeBytes = usage.Free
		stats.DiskTotal = bytesize.Format(bytesize.Size(usage.Total))
		stats.DiskUsed = bytesize.Format(bytesize.Size(usage.Used))
		stats.DiskFree = bytesize.Format(bytesize.Size(usage.Free))
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}

	var outputTotal int64
	for _, entry := range entries {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), channelDirPrefix) {
			continue
		}
		id, err := models.ParseULID(strings.TrimPrefix(entry.Name(), channelDirPrefix))
		if err != nil {
			continue
		}

		path := filepath.Join(root, entry.Name())
		bytes, segments := dirUsage(path)
		outputTotal += bytes
		stats.Channels = append(stats.Channels, ChannelUsage{
			ChannelID: id,
			Path:      path,
			Bytes:     bytes,
			Size:      bytesize.Format(bytesize.Size(bytes)),
			Segments:  segments,
			Live:      c.sessions.HasSession(id),
		})
	}

	sort.Slice(stats.Channels, func(i, j int) bool {
		return stats.Channels[i].Bytes > stats.Channels[j].Bytes
	})
	stats.OutputBytes = bytesize.Format(bytesize.Size(outputTotal))
	return stats, nil
}

// dirUsage sums one directory's file sizes and counts its segments.
func dirUsage(dir string) (bytes int64, segments int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		bytes += fi.Size()
		if strings.HasSuffix(entry.Name(), ".ts") {
			segments++
		}
	}
	return bytes, segments
}
