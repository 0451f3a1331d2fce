// Package installroot locates the directory servers are installed into
// and records what was installed there.
package installroot

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "pses-launcher"

// GetRoot returns the install root directory.
func GetRoot() string {
	// Check environment variable first
	if root := os.Getenv("PSES_ROOT"); root != "" {
		return root
	}

	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support", appDirName)
		}
	case "linux":
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, appDirName)
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".local", "share", appDirName)
		}
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appDirName)
		}
	}

	// Fallback to temp directory
	return filepath.Join(os.TempDir(), appDirName)
}
