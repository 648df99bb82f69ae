// Package build holds version metadata injected at link time via -ldflags.
package build

// These are overridden at build time, e.g.:
//
//	go build -ldflags "-X github.com/taskflow/engine/internal/build.Version=v1.2.3"
var (
	// Version is the released semantic version, or "dev" outside a release build.
	Version = "dev"
	// Commit is the source commit hash the binary was built from.
	Commit = "none"
	// Date is the build timestamp in RFC3339.
	Date = "unknown"
)
