// Package buildinfo exposes the service identity reported by /v1/info and
// the info CLI command.
package buildinfo

import "runtime"

// Overridden at build time via -ldflags "-X".
var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
)

const (
	serviceName = "Vantage"
	repoURL     = "https://github.com/vantagehq/vantage"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
	GoVersion  string `json:"go_version,omitempty"`
}

// GetBuildInfo combines the static identity with the linker-set values.
func GetBuildInfo() Info {
	return Info{
		About:      repoURL,
		Service:    serviceName,
		Version:    Version,
		CommitHash: CommitHash,
		GoVersion:  runtime.Version(),
	}
}
