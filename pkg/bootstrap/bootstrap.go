// SPDX-License-Identifier: Apache-2.0
// Package bootstrap installs and launches PowerShell Editor Services for an
// editor host.
//
// A run gates on the reported platform, reads the user's server options,
// resolves the pinned release, installs it under the install lock when the
// install directory is missing, plans the server command line and hands
// that plan to the host exactly once. Every side effect other than reading
// and extracting the archive goes through the Host interface.
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Settings tunes a bootstrap run. Zero values select the defaults.
type Settings struct {
	// Root holds the install directory, archive and lock file. Defaults to
	// the current working directory.
	Root string
	// TempDir holds session directories. Defaults to os.TempDir().
	TempDir     string
	Version     string
	ReleaseHost string
	// LockTimeout bounds the wait for a concurrent install.
	LockTimeout time.Duration
	Identity    HostIdentity
	Clock       func() time.Time
}

// Bootstrap is the context of a single run. Build a new one per
// initialization; nothing is shared between runs.
type Bootstrap struct {
	host     Host
	logger   hclog.Logger
	settings Settings
}

// New creates a Bootstrap.
func New(host Host, logger hclog.Logger, settings Settings) *Bootstrap {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if settings.LockTimeout == 0 {
		settings.LockTimeout = DefaultLockWait
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	return &Bootstrap{host: host, logger: logger, settings: settings}
}

// Run installs the server if needed and starts it. The returned plan is
// the one handed to Host.StartLSP.
func (b *Bootstrap) Run(info PluginInfo) (*LaunchPlan, error) {
	platform := info.Platform()
	if !platform.Supported() {
		b.logger.Debug("🖥️ Unsupported platform, nothing to do", "arch", info.Arch, "os", info.OS)
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, info.Arch, info.OS)
	}

	opts := ReadServerOptions(info.Configuration.Options)

	paths, report, err := b.ensure(platform)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("📦 Install finished", "state", report.Final(), "fast_path", report.FastPath)

	planner := NewPlanner(paths, b.settings.Identity, b.settings.Clock, b.logger.Named("launch"))
	plan, err := planner.Plan(platform, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(plan.Session().Directory, DirPerms); err != nil {
		b.logger.Warn("⚠️ Failed to create session directory", "path", plan.Session().Directory, "error", err)
	}

	b.logger.Info("🚀 Starting language server", "executable", plan.Executable(), "transport", plan.Transport())
	if err := b.host.StartLSP(plan); err != nil {
		return &plan, fmt.Errorf("failed to start language server: %w", err)
	}
	return &plan, nil
}

// Install makes sure the server is installed without starting it.
func (b *Bootstrap) Install(platform PlatformInfo) (InstallReport, error) {
	if !platform.Supported() {
		return InstallReport{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, platform.Arch, platform.OS)
	}
	_, report, err := b.ensure(platform)
	return report, err
}

// Paths returns the install layout this Bootstrap uses.
func (b *Bootstrap) Paths() (*Paths, error) {
	root := b.settings.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	return NewPaths(root, b.settings.TempDir), nil
}

func (b *Bootstrap) ensure(platform PlatformInfo) (*Paths, InstallReport, error) {
	paths, err := b.Paths()
	if err != nil {
		return nil, InstallReport{}, err
	}

	target := NewResolver(b.settings.Version, b.settings.ReleaseHost).Resolve(platform.OS, paths)
	b.logger.Debug("🎯 Install target", "version", target.Version, "url", target.DownloadURL, "dir", target.InstallDirectory)

	coordinator := NewCoordinator(b.host, paths, b.settings.LockTimeout, b.settings.Clock, b.logger.Named("install"))
	report, err := coordinator.Ensure(target)
	return paths, report, err
}

// Initialize is the host-facing entry point. It decodes the payload, runs
// a fresh Bootstrap and reports failures on logger. Unsupported platforms
// return quietly.
func Initialize(payload []byte, host Host, logger hclog.Logger, settings Settings) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	info, err := DecodePluginInfo(payload)
	if err != nil {
		logger.Error("❌ Failed to decode initialization payload", "error", err)
		return err
	}
	logger.Debug("⚡ Starting PowerShell Editor Services bootstrap",
		"arch", info.Arch, "os", info.OS, "language", info.Configuration.LanguageID)

	_, err = New(host, logger, settings).Run(info)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnsupportedPlatform):
		return err
	default:
		logger.Error("❌ Bootstrap failed", "error", err)
		return err
	}
}
