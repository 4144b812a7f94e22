// Package version carries build metadata injected at link time:
//
//	go build -ldflags "-X github.com/pokerist/marmaricatv-sub001/internal/version.Version=x.y.z \
//	                   -X github.com/pokerist/marmaricatv-sub001/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/pokerist/marmaricatv-sub001/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// ApplicationName is the canonical binary name.
const ApplicationName = "marmaricatv"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the structured form of the build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// shortCommit returns the abbreviated SHA, or "" for local builds.
func shortCommit() string {
	if Commit == "unknown" || len(Commit) < 8 {
		return ""
	}
	return Commit[:8]
}

// String is the long human-readable form used by the version command.
func String() string {
	info := GetInfo()
	if sc := shortCommit(); sc != "" {
		return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s, %s)",
			ApplicationName, info.Version, sc, info.Date, info.GoVersion, info.Platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)",
		ApplicationName, info.Version, info.GoVersion, info.Platform)
}

// Short is the one-line form used for cobra's --version output.
func Short() string {
	if sc := shortCommit(); sc != "" {
		return fmt.Sprintf("%s %s (%s)", ApplicationName, Version, sc)
	}
	return fmt.Sprintf("%s %s", ApplicationName, Version)
}

// JSON renders the build metadata as an indented JSON document.
func JSON() string {
	data, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"version":%q}`, Version)
	}
	return string(data)
}

// UserAgent identifies this process in outbound HTTP requests.
func UserAgent() string {
	return ApplicationName + "/" + Version
}
