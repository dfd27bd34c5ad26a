// Package version carries build information injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags "-X github.com/five82/dronewatch/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// UserAgent returns the HTTP User-Agent for API requests.
func UserAgent() string {
	return "dronewatch/" + Version
}

// String summarises the build for the version command.
func String() string {
	return fmt.Sprintf("dronewatch %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
