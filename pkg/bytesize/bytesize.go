// Package bytesize parses and formats human-readable byte sizes using
// binary (1024) units. "5MB" is 5*1024*1024 bytes, "1.5GB" is
// 1.5*1024^3, a bare number is bytes.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size int64

const (
	B  Size = 1
	KB Size = 1 << 10
	MB Size = 1 << 20
	GB Size = 1 << 30
	TB Size = 1 << 40
	PB Size = 1 << 50
)

// Parse converts a size string like "500KB", "1.5 GB" or "1048576" into a
// Size. Units are case-insensitive; IEC spellings (KiB, MiB, ...) are
// accepted and mean the same binary multiple.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	// Split the numeric prefix from the unit suffix.
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == '-' || s[i] == '+') {
		i++
	}
	numPart := s[:i]
	unitPart := strings.TrimSpace(s[i:])

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	mult, err := unitMultiplier(unitPart)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	return Size(value * float64(mult)), nil
}

func unitMultiplier(unit string) (Size, error) {
	switch strings.ToLower(unit) {
	case "", "b", "byte", "bytes":
		return B, nil
	case "k", "kb", "kib":
		return KB, nil
	case "m", "mb", "mib":
		return MB, nil
	case "g", "gb", "gib":
		return GB, nil
	case "t", "tb", "tib":
		return TB, nil
	case "p", "pb", "pib":
		return PB, nil
	}
	return 0, fmt.Errorf("unknown unit %q", unit)
}

// Format renders a size with the largest unit that keeps the value at or
// above one, trimming trailing zeros: 5242880 becomes "5MB", 1536 "1.5KB".
func Format(s Size) string {
	neg := ""
	if s < 0 {
		neg, s = "-", -s
	}
	if s < KB {
		return fmt.Sprintf("%s%dB", neg, s)
	}

	units := []struct {
		size Size
		name string
	}{
		{PB, "PB"}, {TB, "TB"}, {GB, "GB"}, {MB, "MB"}, {KB, "KB"},
	}
	for _, u := range units {
		if s < u.size {
			continue
		}
		v := float64(s) / float64(u.size)
		if v == float64(int64(v)) {
			return fmt.Sprintf("%s%d%s", neg, int64(v), u.name)
		}
		t := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
		return neg + t + u.name
	}
	return fmt.Sprintf("%s%dB", neg, s)
}

func (s Size) String() string {
	return Format(s)
}
