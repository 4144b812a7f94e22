package transcoding

import (
	"path/filepath"
	"strings"

	"github.com/pokerist/marmaricatv-sub001/internal/ffmpeg"
	"github.com/pokerist/marmaricatv-sub001/internal/httpclient"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// PlaylistName is the manifest filename every job writes inside its output
// directory. The cleanup sweep parses it to protect referenced segments.
const PlaylistName = "playlist.m3u8"

const segmentPattern = "segment_%05d.ts"

// buildEncoderCommand maps a channel and profile onto a deterministic ffmpeg
// invocation. Retry invocations get reconnect and read-timeout robustness
// flags so a briefly flapping source does not immediately fail again.
func buildEncoderCommand(ffmpegPath string, ch *models.Channel, p *models.TranscodingProfile, outputDir string, isRetry bool) *ffmpeg.Command {
	b := ffmpeg.NewCommandBuilder(ffmpegPath).
		HideBanner().
		LogLevel("error").
		Overwrite()

	if isHTTPSource(ch.SourceURL) {
		b.UserAgent(httpclient.DefaultUserAgentHeader)
		if isRetry {
			b.Reconnect().ReadTimeout(15)
		}
	}
	b.Input(ch.SourceURL)

	if p.VideoCodec.IsCopy() {
		b.VideoCodec("copy")
	} else {
		b.VideoCodec(p.VideoCodec.Encoder())
		if p.VideoBitrate != "" {
			b.VideoBitrate(p.VideoBitrate)
		}
		if p.Preset != "" {
			b.VideoPreset(p.Preset)
		}
		if p.Tune != "" {
			b.Tune(p.Tune)
		}
		if p.GopSize > 0 {
			b.GopSize(p.GopSize)
		}
		if w, h, ok := p.ResolutionSize(); ok {
			b.Scale(w, h)
		}
	}

	if p.AudioCodec.IsCopy() {
		b.AudioCodec("copy")
	} else {
		b.AudioCodec(p.AudioCodec.Encoder())
		if p.AudioBitrate != "" {
			b.AudioBitrate(p.AudioBitrate)
		}
	}

	if p.ExtraFlags != "" {
		b.ApplyExtraFlags(p.ExtraFlags)
	}

	b.HLSArgs(p.HLSTime, p.HLSListSize, filepath.Join(outputDir, segmentPattern))
	b.Output(filepath.Join(outputDir, PlaylistName))
	return b.Build()
}

func isHTTPSource(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
