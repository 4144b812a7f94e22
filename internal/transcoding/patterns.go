package transcoding

import "regexp"

// ErrorCategory classifies a matched encoder stderr line.
type ErrorCategory string

const (
	// CategoryStreamDecode is corruption while decoding an otherwise live
	// stream (glitched frames, broken slices).
	CategoryStreamDecode ErrorCategory = "stream_decode"
	// CategoryInvalidData is input the demuxer cannot make sense of.
	CategoryInvalidData ErrorCategory = "invalid_data"
	// CategoryConnectionLost is a dropped or refused upstream connection.
	CategoryConnectionLost ErrorCategory = "connection_lost"
	// CategoryTimeout is an upstream read or connect timeout.
	CategoryTimeout ErrorCategory = "timeout"
	// CategoryResource is local resource exhaustion (memory, disk, fds).
	CategoryResource ErrorCategory = "resource_exhaustion"
)

// IndicatesDeadSource reports whether repeated errors of this category point
// at a vanished upstream rather than a recoverable encoding problem. Decode
// corruption and local resource pressure never quarantine a source.
func (c ErrorCategory) IndicatesDeadSource() bool {
	switch c {
	case CategoryConnectionLost, CategoryTimeout, CategoryInvalidData:
		return true
	default:
		return false
	}
}

// errorPattern pairs a stderr regexp with the category it signals.
type errorPattern struct {
	category ErrorCategory
	re       *regexp.Regexp
}

// errorPatterns is scanned in order; the first match wins. Resource and
// timeout patterns come first because their lines can also contain the more
// generic connection vocabulary.
var errorPatterns = []errorPattern{
	{CategoryResource, regexp.MustCompile(`(?i)cannot allocate memory|no space left on device|too many open files|resource temporarily unavailable`)},
	{CategoryTimeout, regexp.MustCompile(`(?i)timed? ?out`)},
	{CategoryConnectionLost, regexp.MustCompile(`(?i)connection reset by peer|connection refused|broken pipe|end of file|network is unreachable|no route to host|input/output error|failed to resolve hostname|server returned [45]\d\d|http error`)},
	{CategoryInvalidData, regexp.MustCompile(`(?i)invalid data found when processing input|error during demuxing|could not find codec parameters|header missing|invalid nal unit size`)},
	{CategoryStreamDecode, regexp.MustCompile(`(?i)error while decoding|corrupt decoded frame|decode_slice_header error|non-existing pps|packet corrupt|concealing \d+ dc|no frame!`)},
}

// ClassifyLine matches an encoder stderr line against the pattern table.
// Unmatched lines are ordinary output and are not counted as errors.
func ClassifyLine(line string) (ErrorCategory, bool) {
	for _, p := range errorPatterns {
		if p.re.MatchString(line) {
			return p.category, true
		}
	}
	return "", false
}
