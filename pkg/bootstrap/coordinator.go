// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/pses-launcher/internal/installroot"
)

// InstallState is a step of the install state machine.
type InstallState int

const (
	StateNotInstalled InstallState = iota
	StateNotInstalledShortcut
	StateLocked
	StateFetching
	StateExtracting
	StateInstalled
)

// String returns the state name.
func (s InstallState) String() string {
	switch s {
	case StateNotInstalled:
		return "NOT_INSTALLED"
	case StateNotInstalledShortcut:
		return "NOT_INSTALLED_SHORTCUT"
	case StateLocked:
		return "LOCKED"
	case StateFetching:
		return "FETCHING"
	case StateExtracting:
		return "EXTRACTING"
	case StateInstalled:
		return "INSTALLED"
	default:
		return "UNKNOWN"
	}
}

// InstallReport describes what the coordinator did.
type InstallReport struct {
	// States lists every state visited, in order.
	States   []InstallState
	FastPath bool
	Extract  ExtractReport
}

// Final returns the last visited state.
func (r InstallReport) Final() InstallState {
	if len(r.States) == 0 {
		return StateNotInstalled
	}
	return r.States[len(r.States)-1]
}

// Coordinator decides whether a fetch/extract cycle is needed and runs it
// under the install lock.
type Coordinator struct {
	host        Host
	paths       *Paths
	installer   *ArchiveInstaller
	lockTimeout time.Duration
	clock       func() time.Time
	logger      hclog.Logger
}

// NewCoordinator creates a Coordinator. A zero lockTimeout still checks
// the lock once before giving up. A nil clock means time.Now.
func NewCoordinator(host Host, paths *Paths, lockTimeout time.Duration, clock func() time.Time, logger hclog.Logger) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		host:        host,
		paths:       paths,
		installer:   NewArchiveInstaller(host, logger.Named("archive")),
		lockTimeout: lockTimeout,
		clock:       clock,
		logger:      logger,
	}
}

// Ensure makes sure target is installed. The lock is released on every
// path out of Ensure once it was acquired.
func (c *Coordinator) Ensure(target InstallTarget) (report InstallReport, err error) {
	report.States = append(report.States, StateNotInstalled)
	lockPath := c.paths.LockFile()

	if err := os.MkdirAll(c.paths.Root(), DirPerms); err != nil {
		return report, fmt.Errorf("failed to create install root: %w", err)
	}
	if err := acquireLock(c.host, lockPath, c.lockTimeout, c.logger); err != nil {
		return report, err
	}
	defer releaseLock(c.host, lockPath, c.logger)

	if c.paths.InstallExists() {
		c.logger.Info("✅ Server already installed, skipping download", "path", target.InstallDirectory)
		report.States = []InstallState{StateNotInstalledShortcut, StateInstalled}
		report.FastPath = true
		return report, nil
	}
	report.States = append(report.States, StateLocked)

	archivePath := c.paths.ArchivePath(target.ArchiveFileName)
	report.States = append(report.States, StateFetching)
	c.logger.Info("🌐 Downloading server", "version", target.Version, "url", target.DownloadURL)
	if err := c.host.DownloadFile(DownloadRequest{URL: target.DownloadURL, Path: archivePath}); err != nil {
		c.discardArchive(archivePath)
		return report, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if !fileExists(archivePath) {
		c.logger.Error("❌ Server download failed, archive missing", "path", archivePath)
		return report, fmt.Errorf("%w: %s not found after download", ErrDownloadFailed, archivePath)
	}

	report.States = append(report.States, StateExtracting)
	extract, err := c.installer.Install(archivePath, c.paths)
	report.Extract = extract
	if err != nil {
		return report, err
	}

	record := installroot.Record{
		Version:     target.Version,
		DownloadURL: target.DownloadURL,
		InstalledAt: c.clock().UTC(),
		Files:       extract.Files,
		Skipped:     extract.Skipped,
	}
	if err := installroot.WriteRecord(target.InstallDirectory, record); err != nil {
		c.logger.Debug("⚠️ Failed to write install record", "error", err)
	}

	report.States = append(report.States, StateInstalled)
	c.logger.Info("✅ Server installed", "version", target.Version, "path", target.InstallDirectory, "files", extract.Files)
	return report, nil
}

func (c *Coordinator) discardArchive(archivePath string) {
	if !fileExists(archivePath) {
		return
	}
	if err := c.host.RemoveFile(RemoveRequest{Path: archivePath}); err != nil {
		c.logger.Debug("⚠️ Failed to remove partial archive", "path", archivePath, "error", err)
	}
}
