package config

import (
	"encoding/json"
	"time"

	"github.com/pokerist/marmaricatv-sub001/pkg/duration"
)

// Duration is a duration config value accepting the standard Go syntax plus
// day ("7d") and week ("2w") units, the form retention windows are usually
// written in. It round-trips through YAML and JSON in the human form.
type Duration time.Duration

// ParseDuration parses a duration string into a Duration.
func ParseDuration(s string) (Duration, error) {
	d, err := duration.Parse(s)
	return Duration(d), err
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return duration.Format(time.Duration(d))
}

// UnmarshalText lets viper and YAML decode string values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts either a quoted duration string or nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return err
	}
	*d = Duration(ns)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
