// Package duration extends time.ParseDuration with day and week units, so
// retention windows can be written as "7d" or "2w" instead of "168h".
package duration

import (
	"fmt"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Parse reads a duration string. In addition to the standard Go units it
// accepts "d" (days) and "w" (weeks), which may be mixed with the rest:
// "1w2d12h" is one week, two days and twelve hours.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	// Fast path: plain Go syntax, no extended units.
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}

	var total time.Duration
	rest := s
	for rest != "" {
		num, unit, tail, err := nextToken(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		switch unit {
		case "d":
			total += time.Duration(num) * Day
		case "w":
			total += time.Duration(num) * Week
		default:
			d, err := time.ParseDuration(fmt.Sprintf("%d%s", num, unit))
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, unit)
			}
			total += d
		}
		rest = tail
	}

	if neg {
		total = -total
	}
	return total, nil
}

// nextToken splits the leading number+unit pair off the front of s.
func nextToken(s string) (int64, string, string, error) {
	i := 0
	var num int64
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		num = num*10 + int64(s[i]-'0')
		i++
	}
	if i == 0 {
		return 0, "", "", fmt.Errorf("expected number at %q", s)
	}
	j := i
	for j < len(s) && (s[j] < '0' || s[j] > '9') {
		j++
	}
	if j == i {
		return 0, "", "", fmt.Errorf("missing unit after %q", s[:i])
	}
	return num, s[i:j], s[j:], nil
}

// Format renders a duration using the largest whole units, omitting zero
// components: 195h30m becomes "1w1d3h30m".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	neg := ""
	if d < 0 {
		neg, d = "-", -d
	}

	var b strings.Builder
	parts := []struct {
		size time.Duration
		unit string
	}{
		{Week, "w"}, {Day, "d"}, {time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"},
	}
	for _, p := range parts {
		if n := d / p.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, p.unit)
			d -= n * p.size
		}
	}
	if d > 0 {
		// Sub-second remainder, defer to the standard formatter.
		b.WriteString(d.String())
	}
	return neg + b.String()
}
