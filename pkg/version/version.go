// Package version exposes build metadata stamped in via ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X cronobserver/pkg/version.Version=1.4.0 ..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildDate = "unknown"
)

// Info bundles the stamped values with runtime facts for the health and
// version endpoints.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GitBranch string `json:"git_branch"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the full build info.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersionString renders "version (shortcommit)" for startup banners.
func GetVersionString() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
