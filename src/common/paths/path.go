// Package paths expands user-supplied paths for dbmeta.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand expands environment variables and a leading ~
func Expand(path string) string {
	return ExpandHome(os.ExpandEnv(path))
}

// ExpandHome expands only a leading ~ to the current user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	}
	return filepath.Join(usr.HomeDir, path[2:])
}

// EnsureDir creates the parent directory of a file path
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
