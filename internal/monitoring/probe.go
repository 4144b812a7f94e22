package monitoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/asticode/go-astits"
	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	"github.com/pokerist/marmaricatv-sub001/internal/httpclient"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

const (
	// probeReadLimit bounds how much of a source body a probe reads. Live
	// origins routinely ignore Range headers, so the read must be capped
	// locally. Large enough for any live manifest and for several PSI
	// repetitions of a transport stream.
	probeReadLimit = 256 << 10

	tsPacketSize = 188
	tsSyncByte   = 0x47
)

// ProbeResult is one stream availability check.
type ProbeResult struct {
	// Available reports whether the source is considered consumable.
	Available bool `json:"available"`
	// StatusCode is the HTTP status when the HTTP stage answered, 0 otherwise.
	StatusCode int `json:"status_code,omitempty"`
	// Method is the probe stage that decided the result.
	Method models.DetectionMethod `json:"method"`
	// ResponseTime is how long the deciding stage took.
	ResponseTime time.Duration `json:"response_time"`
	// Error describes why an unavailable probe failed.
	Error string `json:"error,omitempty"`
	// CheckedAt is when the probe started.
	CheckedAt time.Time `json:"checked_at"`
}

// Prober decides source availability with a ladder of checks, cheapest
// first: HTTP reachability, then container validation native to the
// transport (HLS manifest parse or MPEG-TS program scan), and ffprobe only
// when the fast path could not decide. A decisive HTTP failure (transport
// error or error status) skips ffprobe entirely; the encoder would hit the
// same wall.
type Prober struct {
	client  *httpclient.Client
	ffprobe *ffmpeg.Prober
	logger  *slog.Logger
}

// NewProber creates a prober. The HTTP client should be configured without
// retries; the probe cycle is itself the retry loop.
func NewProber(client *httpclient.Client, ffprobe *ffmpeg.Prober, logger *slog.Logger) *Prober {
	return &Prober{
		client:  client,
		ffprobe: ffprobe,
		logger:  logger.With(slog.String("component", "prober")),
	}
}

// Probe checks one source URL. The context bounds the whole ladder.
func (p *Prober) Probe(ctx context.Context, sourceURL string) ProbeResult {
	start := time.Now()

	// rtmp, udp, rtp and friends have no cheap reachability check.
	if !isHTTPURL(sourceURL) {
		return p.probeFFprobe(ctx, sourceURL, start, 0)
	}

	resp, err := p.client.GetRange(ctx, sourceURL, probeReadLimit)
	if err != nil {
		return ProbeResult{
			Method:       models.DetectionMethodHTTP,
			ResponseTime: time.Since(start),
			Error:        fmt.Sprintf("fetching source: %v", err),
			CheckedAt:    start,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ProbeResult{
			StatusCode:   resp.StatusCode,
			Method:       models.DetectionMethodHTTP,
			ResponseTime: time.Since(start),
			Error:        fmt.Sprintf("HTTP %d", resp.StatusCode),
			CheckedAt:    start,
		}
	}

	// A short or failed read still leaves a usable prefix; the stream is
	// live and the connection may drop at any byte.
	prefix, _ := io.ReadAll(io.LimitReader(resp.Body, probeReadLimit))

	switch {
	case looksLikeManifest(prefix):
		if err := validateManifest(prefix); err != nil {
			p.logger.Debug("manifest validation failed, deferring to ffprobe",
				slog.String("url", sourceURL),
				slog.Any("error", err))
			return p.probeFFprobe(ctx, sourceURL, start, resp.StatusCode)
		}
		return ProbeResult{
			Available:    true,
			StatusCode:   resp.StatusCode,
			Method:       models.DetectionMethodHLS,
			ResponseTime: time.Since(start),
			CheckedAt:    start,
		}

	case looksLikeTransportStream(prefix):
		if err := scanTransportStream(ctx, prefix); err != nil {
			p.logger.Debug("transport stream scan failed, deferring to ffprobe",
				slog.String("url", sourceURL),
				slog.Any("error", err))
			return p.probeFFprobe(ctx, sourceURL, start, resp.StatusCode)
		}
		return ProbeResult{
			Available:    true,
			StatusCode:   resp.StatusCode,
			Method:       models.DetectionMethodTS,
			ResponseTime: time.Since(start),
			CheckedAt:    start,
		}

	case len(prefix) == 0:
		// Reachable but the body yielded nothing. Let ffprobe decide.
		return p.probeFFprobe(ctx, sourceURL, start, resp.StatusCode)

	default:
		// Reachable with an unrecognized container. Good enough for the
		// fast path; the encoder will report what it cannot consume.
		return ProbeResult{
			Available:    true,
			StatusCode:   resp.StatusCode,
			Method:       models.DetectionMethodHTTP,
			ResponseTime: time.Since(start),
			CheckedAt:    start,
		}
	}
}

func (p *Prober) probeFFprobe(ctx context.Context, sourceURL string, start time.Time, statusCode int) ProbeResult {
	res := ProbeResult{
		StatusCode: statusCode,
		Method:     models.DetectionMethodFFprobe,
		CheckedAt:  start,
	}

	info, err := p.ffprobe.ProbeSimple(ctx, sourceURL)
	res.ResponseTime = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if !info.HasVideo() && !info.HasAudio() {
		res.Error = "no media streams found"
		return res
	}

	res.Available = true
	return res
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func looksLikeManifest(data []byte) bool {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(data, []byte("#EXTM3U"))
}

func looksLikeTransportStream(data []byte) bool {
	if len(data) < 2*tsPacketSize {
		return false
	}
	return data[0] == tsSyncByte && data[tsPacketSize] == tsSyncByte
}

// validateManifest confirms the bytes parse as an HLS playlist with
// content: a media playlist needs at least one segment, a multivariant at
// least one variant. A manifest truncated by the read limit fails the parse
// and falls through to ffprobe.
func validateManifest(data []byte) error {
	pl, err := playlist.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parsing playlist: %w", err)
	}

	switch p := pl.(type) {
	case *playlist.Media:
		if len(p.Segments) == 0 {
			return errors.New("media playlist has no segments")
		}
	case *playlist.Multivariant:
		if len(p.Variants) == 0 {
			return errors.New("multivariant playlist has no variants")
		}
	}
	return nil
}

// scanTransportStream looks for a program map in the prefix. PSI tables
// repeat every few hundred milliseconds on a live mux, so a prefix without
// one is not a usable transport stream.
func scanTransportStream(ctx context.Context, data []byte) error {
	// Drop any trailing partial packet from the bounded read.
	data = data[:len(data)/tsPacketSize*tsPacketSize]

	dmx := astits.NewDemuxer(ctx, bytes.NewReader(data))
	for {
		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				return errors.New("no program map in stream prefix")
			}
			return fmt.Errorf("demuxing transport stream: %w", err)
		}
		if d.PMT == nil {
			continue
		}
		if len(d.PMT.ElementaryStreams) == 0 {
			return errors.New("program map has no elementary streams")
		}
		return nil
	}
}
