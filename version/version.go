// Package version carries build metadata, set via -ldflags at release time.
package version

var (
	// Version is the semantic version of the build.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = "unknown"
)
