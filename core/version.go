package core

// Build metadata, injected with:
//
//	go build -ldflags "-X classifier_backend/core.Version=$(git describe --tags --always) -X classifier_backend/core.GitCommit=$(git rev-parse --short HEAD)" .
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetVersionInfo returns version, build time and commit in one line,
// e.g. "v1.0.0 (built 2024-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}
