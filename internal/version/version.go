// Package version provides version information for symtrail.
package version

import "runtime"

// These variables are overridden at build time with ldflags:
// go build -ldflags "-X symtrail/internal/version.Version=0.3.0 -X symtrail/internal/version.Commit=abc123"
var (
	// Version is the semantic version of symtrail
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "symtrail version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}
