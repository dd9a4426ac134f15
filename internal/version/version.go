// Package version provides build version information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version of dap-view
const Version = "0.1.0"

// GetVersion returns the current version
func GetVersion() string {
	return Version
}

// String returns a human-readable version line including the Go runtime
func String() string {
	return fmt.Sprintf("dap-view v%s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
