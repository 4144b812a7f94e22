package ffmpeg

import (
	"strconv"
	"strings"
)

// CommandBuilder builds FFmpeg argument lists with a fluent API. Argument
// order follows ffmpeg conventions: global flags, input flags, -i, filters,
// output flags, output path.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputArgs  []string
	input      string
	filterArgs []string
	outputArgs []string
	output     string
	logLevel   string
	overwrite  bool
}

// NewCommandBuilder creates a new FFmpeg command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		binary:   ffmpegPath,
		logLevel: "error",
	}
}

// LogLevel sets the FFmpeg log level.
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.logLevel = level
	return b
}

// HideBanner hides the FFmpeg banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// Overwrite enables output file overwriting.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.overwrite = true
	return b
}

// Input sets the input source.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// InputArgs adds arbitrary input arguments.
func (b *CommandBuilder) InputArgs(args ...string) *CommandBuilder {
	b.inputArgs = append(b.inputArgs, args...)
	return b
}

// Reconnect enables automatic reconnection for network streams. Used on
// retry starts so a flapping source does not immediately kill the encoder.
func (b *CommandBuilder) Reconnect() *CommandBuilder {
	b.inputArgs = append(b.inputArgs,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5")
	return b
}

// ReadTimeout sets the input socket read/write timeout.
func (b *CommandBuilder) ReadTimeout(seconds int) *CommandBuilder {
	if seconds > 0 {
		// -rw_timeout takes microseconds
		b.inputArgs = append(b.inputArgs, "-rw_timeout", strconv.FormatInt(int64(seconds)*1_000_000, 10))
	}
	return b
}

// UserAgent sets the HTTP User-Agent for the input request. Many IPTV
// providers reject the default ffmpeg agent.
func (b *CommandBuilder) UserAgent(ua string) *CommandBuilder {
	if ua != "" {
		b.inputArgs = append(b.inputArgs, "-user_agent", ua)
	}
	return b
}

// VideoCodec sets the video codec.
func (b *CommandBuilder) VideoCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", codec)
	return b
}

// AudioCodec sets the audio codec.
func (b *CommandBuilder) AudioCodec(codec string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", codec)
	return b
}

// VideoBitrate sets the video bitrate in ffmpeg rate syntax ("2500k").
func (b *CommandBuilder) VideoBitrate(bitrate string) *CommandBuilder {
	if bitrate != "" {
		b.outputArgs = append(b.outputArgs, "-b:v", bitrate)
	}
	return b
}

// AudioBitrate sets the audio bitrate.
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	if bitrate != "" {
		b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	}
	return b
}

// VideoPreset sets the encoding preset.
func (b *CommandBuilder) VideoPreset(preset string) *CommandBuilder {
	if preset != "" {
		b.outputArgs = append(b.outputArgs, "-preset", preset)
	}
	return b
}

// Tune sets the encoder tune parameter.
func (b *CommandBuilder) Tune(tune string) *CommandBuilder {
	if tune != "" {
		b.outputArgs = append(b.outputArgs, "-tune", tune)
	}
	return b
}

// GopSize sets the keyframe interval in frames.
func (b *CommandBuilder) GopSize(frames int) *CommandBuilder {
	if frames > 0 {
		b.outputArgs = append(b.outputArgs, "-g", strconv.Itoa(frames))
	}
	return b
}

// VideoFilter adds a video filter. Multiple filters are joined into a
// single -vf chain in the order they were added.
func (b *CommandBuilder) VideoFilter(filter string) *CommandBuilder {
	if filter != "" {
		b.filterArgs = append(b.filterArgs, filter)
	}
	return b
}

// Scale adds a scale filter for the given output size.
func (b *CommandBuilder) Scale(width, height int) *CommandBuilder {
	if width > 0 && height > 0 {
		b.filterArgs = append(b.filterArgs, "scale="+strconv.Itoa(width)+":"+strconv.Itoa(height))
	}
	return b
}

// OutputArgs adds arbitrary output arguments.
func (b *CommandBuilder) OutputArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// ApplyExtraFlags parses a profile's extra flags string and appends the
// result to the output arguments. Quoting and escapes are respected.
func (b *CommandBuilder) ApplyExtraFlags(opts string) *CommandBuilder {
	if opts == "" {
		return b
	}
	b.outputArgs = append(b.outputArgs, parseOptionsString(opts)...)
	return b
}

// defaultHLSListSize bounds the live playlist when a profile leaves the
// list size unset. An unbounded list grows the playlist and the segment
// directory forever.
const defaultHLSListSize = 6

// HLSArgs adds HLS muxer arguments. delete_segments and append_list are
// always set: without them a long-running live encode fills the disk, and
// they must survive even when a profile's extra flags override other HLS
// parameters.
func (b *CommandBuilder) HLSArgs(segmentTime, listSize int, segmentPattern string) *CommandBuilder {
	if segmentTime <= 0 {
		segmentTime = 4
	}
	if listSize <= 0 {
		listSize = defaultHLSListSize
	}
	b.outputArgs = append(b.outputArgs,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentTime),
		"-hls_list_size", strconv.Itoa(listSize),
		"-hls_flags", "delete_segments+append_list")
	if segmentPattern != "" {
		b.outputArgs = append(b.outputArgs, "-hls_segment_filename", segmentPattern)
	}
	return b
}

// Output sets the output destination.
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Build assembles the final argument list.
func (b *CommandBuilder) Build() *Command {
	var args []string

	args = append(args, "-loglevel", b.logLevel)
	args = append(args, b.globalArgs...)

	if b.overwrite {
		args = append(args, "-y")
	}

	args = append(args, b.inputArgs...)
	args = append(args, "-i", b.input)

	if len(b.filterArgs) > 0 {
		args = append(args, "-vf", strings.Join(b.filterArgs, ","))
	}

	args = append(args, b.outputArgs...)
	args = append(args, b.output)

	return NewCommand(b.binary, args)
}

// parseOptionsString splits an options string respecting quotes and
// backslash escapes.
func parseOptionsString(s string) []string {
	var result []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	escaped := false

	for _, r := range s {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		if r == '\\' {
			escaped = true
			continue
		}

		if r == '"' || r == '\'' {
			if !inQuote {
				inQuote = true
				quoteChar = r
			} else if r == quoteChar {
				inQuote = false
			} else {
				current.WriteRune(r)
			}
			continue
		}

		if r == ' ' && !inQuote {
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
			continue
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
