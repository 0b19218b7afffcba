// Package version carries build identification, stamped at link time.
package version

var (
	// Version is the semantic version, overridden via -ldflags at release
	Version = "dev"

	// Commit is the short git hash of the build
	Commit = "unknown"
)

// String returns the combined version identifier
func String() string {
	return Version + " (" + Commit + ")"
}
