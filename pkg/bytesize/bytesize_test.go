package bytesize

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Size
	}{
		{"0", 0},
		{"1024", 1024},
		{"500KB", 500 * KB},
		{"5MB", 5 * MB},
		{"5 mb", 5 * MB},
		{"1.5GB", Size(1.5 * float64(GB))},
		{"2GiB", 2 * GB},
		{"1TB", TB},
		{"100 bytes", 100},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "MB", "12XB", "1.2.3KB", "  "} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   Size
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{KB, "1KB"},
		{1536, "1.5KB"},
		{5 * MB, "5MB"},
		{Size(2.25 * float64(GB)), "2.25GB"},
		{-MB, "-1MB"},
	}
	for _, c := range cases {
		if got := Format(c.in); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []Size{0, 100, KB, 3 * MB, 7 * GB} {
		back, err := Parse(Format(s))
		if err != nil {
			t.Fatalf("Parse(Format(%d)): %v", s, err)
		}
		if back != s {
			t.Errorf("round trip %d -> %q -> %d", s, Format(s), back)
		}
	}
}
