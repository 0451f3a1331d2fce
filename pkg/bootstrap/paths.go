// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths derives every on-disk location used by a bootstrap run.
type Paths struct {
	root    string
	tempDir string
}

// NewPaths creates Paths rooted at root. Session directories live under
// tempDir, which defaults to os.TempDir().
func NewPaths(root, tempDir string) *Paths {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Paths{root: filepath.Clean(root), tempDir: filepath.Clean(tempDir)}
}

// ==================== Install Paths ====================

// Root returns the working directory that holds the install.
func (p *Paths) Root() string {
	return p.root
}

// InstallDir returns the extracted server directory.
func (p *Paths) InstallDir() string {
	return filepath.Join(p.root, InstallDirName)
}

// StagingDir returns the directory archives are extracted into before
// being moved onto InstallDir.
func (p *Paths) StagingDir() string {
	return filepath.Join(p.root, "."+InstallDirName+StagingSuffix)
}

// ArchivePath returns where the downloaded archive is stored.
func (p *Paths) ArchivePath(fileName string) string {
	return filepath.Join(p.root, fileName)
}

// LockFile returns the install lock sentinel path.
func (p *Paths) LockFile() string {
	return filepath.Join(p.root, LockFileName)
}

// ==================== Session Paths ====================

// TempDir returns the root for session directories.
func (p *Paths) TempDir() string {
	return p.tempDir
}

// SessionDir returns the session directory for a token.
func (p *Paths) SessionDir(token int64) string {
	return filepath.Join(p.tempDir, fmt.Sprintf("%s%d", SessionDirPrefix, token))
}

// ==================== Utility Methods ====================

// InstallExists reports whether the install directory is present. It is
// the only signal used to decide whether an install is needed.
func (p *Paths) InstallExists() bool {
	info, err := os.Stat(p.InstallDir())
	return err == nil && info.IsDir()
}
