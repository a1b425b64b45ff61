package version

import "fmt"

// Build identity, stamped by the release build:
//
//	go build -ldflags "\
//	  -X github.com/oshokin/smart-dial/internal/version.Version=1.2.0 \
//	  -X github.com/oshokin/smart-dial/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/oshokin/smart-dial/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped development builds keep the defaults.
var (
	// Version is the semantic release version.
	Version = "1.0.0"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Short returns the bare semantic version, the value release manifests
// carry.
func Short() string {
	return Version
}

// Full renders the complete build identity on one line.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
