// Package ffmpeg provides FFmpeg/FFprobe binary detection, command
// construction and process control for transcoding sessions.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BinaryInfo describes the detected FFmpeg installation.
type BinaryInfo struct {
	FFmpegPath    string `json:"ffmpeg_path"`
	FFprobePath   string `json:"ffprobe_path,omitempty"`
	Version       string `json:"version"`
	MajorVersion  int    `json:"major_version"`
	MinorVersion  int    `json:"minor_version"`
	Configuration string `json:"configuration,omitempty"`
}

// JSON returns the binary info as an indented JSON string.
func (info *BinaryInfo) JSON() string {
	data, _ := json.MarshalIndent(info, "", "  ")
	return string(data)
}

// SupportsMinVersion returns true if the FFmpeg version meets the minimum.
func (info *BinaryInfo) SupportsMinVersion(major, minor int) bool {
	if info.MajorVersion > major {
		return true
	}
	return info.MajorVersion == major && info.MinorVersion >= minor
}

// Locate resolves a binary path. A configured path wins when it points at an
// executable; otherwise the working directory and PATH are searched.
func Locate(name, configured string) (string, error) {
	if configured != "" {
		if isExecutable(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("configured %s path %q is not executable", name, configured)
	}

	localPath := "./" + name
	if isExecutable(localPath) {
		return localPath, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

// isExecutable checks if a file exists and is executable by the current user.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

// Detector resolves and caches FFmpeg binary information. Configured paths
// take precedence over PATH lookup.
type Detector struct {
	ffmpegPath  string
	ffprobePath string

	mu           sync.RWMutex
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration
}

// NewDetector creates a detector. Either path may be empty to search PATH.
func NewDetector(ffmpegPath, ffprobePath string) *Detector {
	return &Detector{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		cacheTTL:    5 * time.Minute,
	}
}

// WithCacheTTL sets the cache TTL for binary detection.
func (d *Detector) WithCacheTTL(ttl time.Duration) *Detector {
	d.cacheTTL = ttl
	return d
}

// Detect resolves the binaries and their version, caching the result.
func (d *Detector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Clear clears the cached binary information.
func (d *Detector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = nil
}

func (d *Detector) detect(ctx context.Context) (*BinaryInfo, error) {
	info := &BinaryInfo{}

	ffmpegPath, err := Locate("ffmpeg", d.ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	info.FFmpegPath = ffmpegPath

	// ffprobe is optional: without it the deep health probe and source
	// introspection degrade, but transcoding still works.
	if ffprobePath, err := Locate("ffprobe", d.ffprobePath); err == nil {
		info.FFprobePath = ffprobePath
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}

	version, err := parseVersionOutput(string(output))
	if err != nil {
		return nil, err
	}
	info.Version = version.full
	info.MajorVersion = version.major
	info.MinorVersion = version.minor
	info.Configuration = version.configuration

	return info, nil
}

type versionInfo struct {
	full          string
	major         int
	minor         int
	configuration string
}

var versionRegex = regexp.MustCompile(`^n?(\d+)\.(\d+)`)

// parseVersionOutput extracts version fields from `ffmpeg -version` output.
// Handles "6.0", "6.0.1" and git-build strings like "n6.0-2-g...".
func parseVersionOutput(output string) (*versionInfo, error) {
	info := &versionInfo{}

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(line, "ffmpeg version"):
			parts := strings.Fields(line)
			if len(parts) >= 3 {
				info.full = parts[2]
				if matches := versionRegex.FindStringSubmatch(parts[2]); len(matches) >= 3 {
					info.major, _ = strconv.Atoi(matches[1])
					info.minor, _ = strconv.Atoi(matches[2])
				}
			}
		case strings.HasPrefix(line, "configuration:"):
			info.configuration = strings.TrimSpace(strings.TrimPrefix(line, "configuration:"))
		}
	}

	if info.full == "" {
		return nil, fmt.Errorf("failed to parse ffmpeg version")
	}

	return info, nil
}
