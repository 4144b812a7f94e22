// Package m3u parses extended M3U/M3U8 channel playlists. Parsing is
// streaming with a per-entry callback so arbitrarily large playlists never
// materialize in memory, and transparently handles gzip, bzip2 and xz
// compressed input by magic-byte sniffing. BOM-prefixed and UTF-16
// playlists are decoded to UTF-8.
package m3u

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoCallback is returned when Parse is called without an entry callback.
var ErrNoCallback = errors.New("m3u: entry callback is required")

// Entry is one channel in a playlist: the #EXTINF metadata line plus the
// stream URL that follows it.
type Entry struct {
	// Title is the display title after the metadata comma.
	Title string

	// URL is the stream URL.
	URL string

	// TvgID is the tvg-id attribute, an EPG channel key.
	TvgID string

	// LogoURL is the tvg-logo attribute.
	LogoURL string

	// Group is the group-title attribute, used as the channel category.
	Group string

	// Number is the tvg-chno channel number, 0 when absent.
	Number int

	// Duration is the EXTINF duration in seconds, -1 for live streams.
	Duration int

	attrs map[string]string
}

// Name returns the best display name: tvg-name when present, else the title.
func (e *Entry) Name() string {
	if name, ok := e.attrs["tvg-name"]; ok && name != "" {
		return name
	}
	return e.Title
}

// Attr returns a raw EXTINF attribute by key.
func (e *Entry) Attr(key string) (string, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

// EntryFunc receives each parsed entry. Returning an error aborts the parse.
type EntryFunc func(e *Entry) error

// ErrorFunc receives recoverable per-line errors. The offending line is
// skipped and the parse continues; a nil handler drops them silently.
type ErrorFunc func(line int, err error)

const maxLineBytes = 1 << 20

var (
	extinfRe = regexp.MustCompile(`^#EXTINF:\s*(-?\d+)\s*(.*)$`)
	attrRe   = regexp.MustCompile(`([a-zA-Z0-9_-]+)="([^"]*)"`)
)

// Parse reads a plain-text playlist and invokes fn for every entry. A URL
// line with no preceding #EXTINF still yields a minimal entry so bare lists
// of stream URLs import.
func Parse(r io.Reader, fn EntryFunc, onError ErrorFunc) error {
	if fn == nil {
		return ErrNoCallback
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)

	var pending *Entry
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#EXTM3U"):
			continue
		case strings.HasPrefix(line, "#EXTINF:"):
			entry, err := parseExtinf(line)
			if err != nil {
				if onError != nil {
					onError(lineNum, err)
				}
				pending = nil
				continue
			}
			pending = entry
		case strings.HasPrefix(line, "#"):
			// Directives between EXTINF and the URL (#EXTVLCOPT and
			// friends) are not metadata this importer carries.
			continue
		default:
			entry := pending
			pending = nil
			if entry == nil {
				entry = &Entry{Duration: -1, Title: titleFromURL(line)}
			}
			entry.URL = line
			if err := fn(entry); err != nil {
				return fmt.Errorf("m3u: entry at line %d: %w", lineNum, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("m3u: reading playlist: %w", err)
	}
	return nil
}

// ParseCompressed sniffs the stream's magic bytes and parses through the
// matching decompressor. Plain text passes through untouched.
func ParseCompressed(r io.Reader, fn EntryFunc, onError ErrorFunc) error {
	br := bufio.NewReader(r)
	header, err := br.Peek(6)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("m3u: sniffing compression: %w", err)
	}

	var reader io.Reader = br
	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("m3u: opening gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		reader = bzip2.NewReader(br)
	case len(header) >= 6 && string(header) == "\xfd7zXZ\x00":
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("m3u: opening xz stream: %w", err)
		}
		reader = xzr
	}

	// Playlists exported on Windows often carry a BOM, sometimes as
	// UTF-16. Decode those to plain UTF-8 before line parsing.
	dec := unicode.UTF8.NewDecoder()
	reader = transform.NewReader(reader, unicode.BOMOverride(dec))

	return Parse(reader, fn, onError)
}

// parseExtinf splits an #EXTINF line into duration, quoted attributes and
// the trailing title.
func parseExtinf(line string) (*Entry, error) {
	m := extinfRe.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("malformed EXTINF line")
	}
	duration, _ := strconv.Atoi(m[1])

	entry := &Entry{Duration: duration}
	entry.attrs = make(map[string]string)

	rest := m[2]
	if idx := titleComma(rest); idx >= 0 {
		entry.Title = strings.TrimSpace(rest[idx+1:])
		rest = rest[:idx]
	}

	for _, am := range attrRe.FindAllStringSubmatch(rest, -1) {
		key := strings.ToLower(am[1])
		value := am[2]
		switch key {
		case "tvg-logo":
			entry.LogoURL = value
		case "group-title":
			entry.Group = value
		case "tvg-id":
			entry.TvgID = value
		case "tvg-chno":
			entry.Number, _ = strconv.Atoi(value)
		}
		entry.attrs[key] = value
	}
	return entry, nil
}

// titleComma finds the comma separating attributes from the title, skipping
// commas inside quoted attribute values.
func titleComma(s string) int {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				return i
			}
		}
	}
	return -1
}

// titleFromURL derives a fallback title from the URL's last path element.
func titleFromURL(url string) string {
	trimmed := url
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "unnamed"
	}
	return trimmed
}
