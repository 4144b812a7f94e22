package version

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, ApplicationName) {
		t.Errorf("expected %q in version string, got %q", ApplicationName, s)
	}
	if !strings.Contains(s, Version) {
		t.Errorf("expected version %q in string, got %q", Version, s)
	}
}

func TestShort(t *testing.T) {
	s := Short()
	if !strings.HasPrefix(s, ApplicationName+" ") {
		t.Errorf("unexpected short version %q", s)
	}
}

func TestJSON(t *testing.T) {
	var info Info
	if err := json.Unmarshal([]byte(JSON()), &info); err != nil {
		t.Fatalf("unmarshaling version JSON: %v", err)
	}
	if info.Version != Version {
		t.Errorf("expected version %q, got %q", Version, info.Version)
	}
	if info.GoVersion == "" {
		t.Error("expected go_version to be set")
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != ApplicationName+"/"+Version {
		t.Errorf("unexpected user agent %q", got)
	}
}
