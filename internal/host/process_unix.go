//go:build !windows

package host

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isProcessRunning reports whether pid exists. EPERM means it exists but
// belongs to another user.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// availableDiskSpace returns the bytes available to us on the file system
// holding path.
func availableDiskSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil //nolint:gosec // block size is positive
}
