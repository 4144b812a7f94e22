package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		in   string
		want ByteSize
	}{
		{"1024", 1024},
		{"500KB", 500 << 10},
		{"50MB", 50 << 20},
		{"50 mb", 50 << 20},
		{"1.5MB", ByteSize(1.5 * (1 << 20))},
		{"2GB", 2 << 30},
	}
	for _, c := range cases {
		b, err := ParseByteSize(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, b, c.in)
	}

	_, err := ParseByteSize("lots")
	assert.Error(t, err)
}

func TestByteSizeJSON(t *testing.T) {
	var b ByteSize
	require.NoError(t, json.Unmarshal([]byte(`"50MB"`), &b))
	assert.Equal(t, int64(50<<20), b.Bytes())

	// Bare byte counts still decode.
	require.NoError(t, json.Unmarshal([]byte(`52428800`), &b))
	assert.Equal(t, int64(50<<20), b.Bytes())

	out, err := json.Marshal(ByteSize(5 << 20))
	require.NoError(t, err)
	assert.Equal(t, `"5MB"`, string(out))
}

func TestByteSizeText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("2GB")))
	assert.Equal(t, "2GB", b.String())
}
