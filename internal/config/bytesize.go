package config

import (
	"encoding/json"

	"github.com/pokerist/marmaricatv-sub001/pkg/bytesize"
)

// ByteSize is a size config value accepting human-readable strings ("50MB",
// "1.5 GB") as well as raw byte counts. It round-trips through YAML and
// JSON in the human form.
type ByteSize int64

// ParseByteSize parses a size string into a ByteSize.
func ParseByteSize(s string) (ByteSize, error) {
	size, err := bytesize.Parse(s)
	return ByteSize(size), err
}

// Bytes returns the raw byte count.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}

func (b ByteSize) String() string {
	return bytesize.Format(bytesize.Size(b))
}

// UnmarshalText lets viper and YAML decode string values.
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalJSON accepts either a quoted size string or a bare byte count.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return b.UnmarshalText([]byte(s))
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}
