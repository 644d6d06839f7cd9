// Package version provides build-time metadata for the devreload binary.
// Version, GitCommit, and BuildDate are injected at compile time via -ldflags.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Release   bool   `json:"release"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return newInfo(version, gitCommit, buildDate)
}

func newInfo(v, commit, date string) Info {
	normalized, release := normalize(v)

	return Info{
		Version:   normalized,
		GitCommit: shortCommit(commit),
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Release:   release,
	}
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("devreload %s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// UserAgent returns the product token used on outgoing HTTP requests.
func (i Info) UserAgent() string {
	return "devreload/" + i.Version
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// normalize parses v as a semantic version. Tags like "v1.2.0" become
// "1.2.0"; anything unparsable (e.g. "dev") is returned as-is and is never
// a release.
func normalize(v string) (string, bool) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v, false
	}

	return sv.String(), sv.Prerelease() == ""
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
