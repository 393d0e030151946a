// Package version holds build version information for dbmeta binaries.
package version

import (
	"fmt"
	"runtime"
)

// Info is populated at build time via ldflags
type Info struct {
	// Version is the full version string, e.g. "v1.4.0-4f9f297"
	Version   string
	BuildDate string
	GitCommit string
}

var (
	DefaultVersion   = "dev"
	DefaultBuildDate = "unknown"
	DefaultGitCommit = "unknown"
)

// New creates an Info with default values
func New() *Info {
	return &Info{
		Version:   DefaultVersion,
		BuildDate: DefaultBuildDate,
		GitCommit: DefaultGitCommit,
	}
}

// GoVersion returns the Go runtime version
func GoVersion() string {
	return runtime.Version()
}

// String returns the version string
func (i *Info) String() string {
	return i.Version
}

// Full returns a multi-line description
func (i *Info) Full() string {
	return fmt.Sprintf(`dbmeta %s
  Build Date: %s
  Git Commit: %s
  Go Version: %s`,
		i.Version,
		i.BuildDate,
		i.GitCommit,
		GoVersion(),
	)
}

// Map returns version info keyed for JSON responses
func (i *Info) Map() map[string]string {
	return map[string]string{
		"version":    i.Version,
		"build_date": i.BuildDate,
		"git_commit": i.GitCommit,
		"go_version": GoVersion(),
	}
}
