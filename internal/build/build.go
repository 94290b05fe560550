// Package build carries version information stamped at build time via
// -ldflags "-X github.com/drummonds/pdftoolbox/internal/build.Version=...".
package build

// Version is the release version, "dev" when built from source.
var Version = "dev"

// Commit is the short git commit hash of the build.
var Commit = "unknown"

// Date is the build timestamp in RFC 3339 form.
var Date = "unknown"
