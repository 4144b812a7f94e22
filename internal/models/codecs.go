package models

// VideoCodec identifies the target video codec of a profile.
type VideoCodec string

const (
	// VideoCodecCopy passes the source video stream through untouched.
	VideoCodecCopy VideoCodec = "copy"
	// VideoCodecH264 transcodes to H.264/AVC.
	VideoCodecH264 VideoCodec = "h264"
	// VideoCodecH265 transcodes to H.265/HEVC.
	VideoCodecH265 VideoCodec = "h265"
)

// IsCopy returns true for the pass-through codec.
func (c VideoCodec) IsCopy() bool {
	return c == VideoCodecCopy
}

// IsValid returns true if this is a recognized video codec.
func (c VideoCodec) IsValid() bool {
	switch c {
	case VideoCodecCopy, VideoCodecH264, VideoCodecH265:
		return true
	default:
		return false
	}
}

// Encoder returns the ffmpeg encoder name, or "copy" for pass-through.
func (c VideoCodec) Encoder() string {
	switch c {
	case VideoCodecH264:
		return "libx264"
	case VideoCodecH265:
		return "libx265"
	default:
		return "copy"
	}
}

// AudioCodec identifies the target audio codec of a profile.
type AudioCodec string

const (
	// AudioCodecCopy passes the source audio stream through untouched.
	AudioCodecCopy AudioCodec = "copy"
	// AudioCodecAAC transcodes to AAC.
	AudioCodecAAC AudioCodec = "aac"
	// AudioCodecMP3 transcodes to MP3.
	AudioCodecMP3 AudioCodec = "mp3"
)

// IsCopy returns true for the pass-through codec.
func (c AudioCodec) IsCopy() bool {
	return c == AudioCodecCopy
}

// IsValid returns true if this is a recognized audio codec.
func (c AudioCodec) IsValid() bool {
	switch c {
	case AudioCodecCopy, AudioCodecAAC, AudioCodecMP3:
		return true
	default:
		return false
	}
}

// Encoder returns the ffmpeg encoder name, or "copy" for pass-through.
func (c AudioCodec) Encoder() string {
	switch c {
	case AudioCodecAAC:
		return "aac"
	case AudioCodecMP3:
		return "libmp3lame"
	default:
		return "copy"
	}
}
