package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProbeResult contains the parsed ffprobe output.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// ProbeFormat contains container format information.
type ProbeFormat struct {
	Filename       string            `json:"filename"`
	NumStreams     int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	StartTime      string            `json:"start_time"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	ProbeScore     int               `json:"probe_score"`
	Tags           map[string]string `json:"tags"`
}

// ProbeStream contains per-stream information.
type ProbeStream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	Profile       string            `json:"profile"`
	CodecType     string            `json:"codec_type"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	PixFmt        string            `json:"pix_fmt,omitempty"`
	Level         int               `json:"level,omitempty"`
	SampleRate    string            `json:"sample_rate,omitempty"`
	Channels      int               `json:"channels,omitempty"`
	ChannelLayout string            `json:"channel_layout,omitempty"`
	RFrameRate    string            `json:"r_frame_rate,omitempty"`
	AvgFrameRate  string            `json:"avg_frame_rate,omitempty"`
	Duration      string            `json:"duration,omitempty"`
	BitRate       string            `json:"bit_rate,omitempty"`
	Disposition   ProbeDisposition  `json:"disposition,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// ProbeDisposition contains stream disposition flags.
type ProbeDisposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

// StreamInfo is a simplified view of a probed source, reduced to what the
// health monitor and the API surface need.
type StreamInfo struct {
	VideoCodec     string  `json:"video_codec,omitempty"`
	VideoProfile   string  `json:"video_profile,omitempty"`
	VideoWidth     int     `json:"video_width,omitempty"`
	VideoHeight    int     `json:"video_height,omitempty"`
	VideoFramerate float64 `json:"video_framerate,omitempty"`
	VideoBitrate   int     `json:"video_bitrate,omitempty"`
	VideoPixFmt    string  `json:"video_pix_fmt,omitempty"`

	AudioCodec      string `json:"audio_codec,omitempty"`
	AudioSampleRate int    `json:"audio_sample_rate,omitempty"`
	AudioChannels   int    `json:"audio_channels,omitempty"`
	AudioBitrate    int    `json:"audio_bitrate,omitempty"`

	ContainerFormat string `json:"container_format,omitempty"`
	Duration        int64  `json:"duration,omitempty"` // milliseconds, 0 for live
	IsLiveStream    bool   `json:"is_live_stream"`
	StreamCount     int    `json:"stream_count"`
}

// HasVideo returns true if the probe found a video stream.
func (info *StreamInfo) HasVideo() bool {
	return info.VideoCodec != ""
}

// HasAudio returns true if the probe found an audio stream.
func (info *StreamInfo) HasAudio() bool {
	return info.AudioCodec != ""
}

// Prober runs ffprobe against stream sources.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a new stream prober.
func NewProber(ffprobePath string) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     30 * time.Second,
	}
}

// WithTimeout sets the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe probes a source URL and returns the full ffprobe result.
func (p *Prober) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-timeout", strconv.FormatInt(int64(p.timeout.Seconds())*1_000_000, 10),
	}

	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}

	args = append(args, url)

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probe timeout after %v", p.timeout)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	return &result, nil
}

// ProbeSimple probes a source and returns simplified information.
func (p *Prober) ProbeSimple(ctx context.Context, url string) (*StreamInfo, error) {
	result, err := p.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	return result.Simplify(), nil
}

// CheckSource quickly verifies that a source serves at least one stream.
func (p *Prober) CheckSource(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		"-timeout", "5000000",
	}

	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		args = append(args, "-reconnect", "1")
	}

	args = append(args, url)

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("source check failed: %w", err)
	}

	if len(strings.TrimSpace(string(output))) == 0 {
		return fmt.Errorf("no streams found")
	}

	return nil
}

// Simplify reduces the full probe result to the fields the rest of the
// system consumes. Video and audio properties come from the default track
// when one is marked, otherwise the first of each type.
func (r *ProbeResult) Simplify() *StreamInfo {
	info := &StreamInfo{
		ContainerFormat: r.Format.FormatName,
		StreamCount:     r.Format.NumStreams,
		Duration:        r.Duration(),
	}

	// Live sources have no duration; HLS and raw TS containers are live
	// by definition here.
	info.IsLiveStream = info.Duration == 0 ||
		strings.Contains(r.Format.FormatName, "hls") ||
		strings.Contains(r.Format.FormatName, "mpegts")

	video := r.selectStream("video")
	if video != nil {
		info.VideoCodec = video.CodecName
		info.VideoProfile = video.Profile
		info.VideoWidth = video.Width
		info.VideoHeight = video.Height
		info.VideoPixFmt = video.PixFmt
		info.VideoFramerate = video.Framerate()
		if br, err := strconv.Atoi(video.BitRate); err == nil {
			info.VideoBitrate = br
		}
	}

	audio := r.selectStream("audio")
	if audio != nil {
		info.AudioCodec = audio.CodecName
		info.AudioChannels = audio.Channels
		if sr, err := strconv.Atoi(audio.SampleRate); err == nil {
			info.AudioSampleRate = sr
		}
		if br, err := strconv.Atoi(audio.BitRate); err == nil {
			info.AudioBitrate = br
		}
	}

	return info
}

// selectStream returns the default stream of the given type, or the first.
func (r *ProbeResult) selectStream(codecType string) *ProbeStream {
	var first *ProbeStream
	for i := range r.Streams {
		if r.Streams[i].CodecType != codecType {
			continue
		}
		if r.Streams[i].Disposition.Default == 1 {
			return &r.Streams[i]
		}
		if first == nil {
			first = &r.Streams[i]
		}
	}
	return first
}

// GetVideoStream returns the first video stream, or nil.
func (r *ProbeResult) GetVideoStream() *ProbeStream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "video" {
			return &r.Streams[i]
		}
	}
	return nil
}

// GetAudioStream returns the first audio stream, or nil.
func (r *ProbeResult) GetAudioStream() *ProbeStream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "audio" {
			return &r.Streams[i]
		}
	}
	return nil
}

// GetStreamsByType returns all streams of a given type.
func (r *ProbeResult) GetStreamsByType(codecType string) []ProbeStream {
	var streams []ProbeStream
	for _, s := range r.Streams {
		if s.CodecType == codecType {
			streams = append(streams, s)
		}
	}
	return streams
}

// Duration returns the container duration in milliseconds.
func (r *ProbeResult) Duration() int64 {
	if r.Format.Duration == "" {
		return 0
	}
	if dur, err := strconv.ParseFloat(r.Format.Duration, 64); err == nil {
		return int64(dur * 1000)
	}
	return 0
}

// Bitrate returns the overall bitrate in bits per second.
func (r *ProbeResult) Bitrate() int {
	if r.Format.BitRate == "" {
		return 0
	}
	if br, err := strconv.Atoi(r.Format.BitRate); err == nil {
		return br
	}
	return 0
}

// Framerate returns the stream framerate in frames per second.
func (s *ProbeStream) Framerate() float64 {
	if s.AvgFrameRate != "" {
		return parseFramerate(s.AvgFrameRate)
	}
	if s.RFrameRate != "" {
		return parseFramerate(s.RFrameRate)
	}
	return 0
}

// parseFramerate parses a framerate string like "30000/1001" or "25/1".
func parseFramerate(fr string) float64 {
	parts := strings.Split(fr, "/")
	if len(parts) != 2 {
		if f, err := strconv.ParseFloat(fr, 64); err == nil {
			return f
		}
		return 0
	}

	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}

	return num / den
}
