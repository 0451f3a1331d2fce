// SPDX-License-Identifier: Apache-2.0
package bootstrap

// LockRequest asks the host to create the install lock sentinel.
type LockRequest struct {
	Path string `json:"path"`
}

// DownloadRequest asks the host to fetch URL into Path.
type DownloadRequest struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ExecutableRequest asks the host to mark Path (file or tree) executable.
type ExecutableRequest struct {
	Path string `json:"path"`
}

// RemoveRequest asks the host to delete a file.
type RemoveRequest struct {
	Path string `json:"path"`
}

// Host is the set of side effects the bootstrap delegates to the editor
// host. Every call is synchronous.
type Host interface {
	// LockFile creates the lock sentinel exclusively. It returns an error
	// wrapping ErrLockHeld when another live process owns it.
	LockFile(req LockRequest) error
	DownloadFile(req DownloadRequest) error
	MakeFileExecutable(req ExecutableRequest) error
	RemoveFile(req RemoveRequest) error
	// StartLSP starts the language server described by plan over stdio.
	StartLSP(plan LaunchPlan) error
}
