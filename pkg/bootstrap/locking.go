// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// acquireLock requests the install lock. When another bootstrap holds it,
// it waits up to timeout for the lock to disappear and asks once more.
func acquireLock(host Host, lockPath string, timeout time.Duration, logger hclog.Logger) error {
	err := host.LockFile(LockRequest{Path: lockPath})
	if err == nil {
		logger.Debug("🔒 Acquired install lock", "path", lockPath)
		return nil
	}
	if !errors.Is(err, ErrLockHeld) {
		return fmt.Errorf("failed to create install lock: %w", err)
	}

	logger.Info("⏳ Another bootstrap is installing, waiting...", "path", lockPath, "timeout", timeout)
	if waitErr := WaitForRelease(lockPath, timeout, logger); waitErr != nil {
		// The holder may have died without cleaning up; the host removes
		// stale locks on the next request.
		logger.Debug("⚠️ Lock still present after wait", "error", waitErr)
	}

	if err := host.LockFile(LockRequest{Path: lockPath}); err != nil {
		if errors.Is(err, ErrLockHeld) {
			return fmt.Errorf("%w: %s held after %s", ErrLockTimeout, lockPath, timeout)
		}
		return fmt.Errorf("failed to create install lock: %w", err)
	}
	logger.Debug("🔒 Acquired install lock after waiting", "path", lockPath)
	return nil
}

// releaseLock asks the host to remove the lock. Failures are not fatal.
func releaseLock(host Host, lockPath string, logger hclog.Logger) {
	if err := host.RemoveFile(RemoveRequest{Path: lockPath}); err != nil {
		logger.Debug("⚠️ Failed to remove install lock", "path", lockPath, "error", err)
		return
	}
	logger.Debug("🔓 Released install lock", "path", lockPath)
}

// WaitForRelease blocks until path no longer exists or timeout elapses.
// Removal is observed through fsnotify on the parent directory, with a
// polling fallback for file systems that do not deliver events.
func WaitForRelease(path string, timeout time.Duration, logger hclog.Logger) error {
	if !fileExists(path) {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(LockPollEvery)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher, err := fsnotify.NewWatcher(); err != nil {
		logger.Debug("⚠️ fsnotify unavailable, polling lock", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			logger.Debug("⚠️ Failed to watch lock directory, polling", "error", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	target := filepath.Clean(path)
	start := time.Now()
	ticks := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && !fileExists(path) {
				logger.Debug("✅ Install lock released", "elapsed", time.Since(start))
				return nil
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Debug("⚠️ Lock watcher error", "error", err)
		case <-ticker.C:
			if !fileExists(path) {
				logger.Debug("✅ Install lock released", "elapsed", time.Since(start))
				return nil
			}
			ticks++
			if ticks%10 == 0 {
				logger.Debug("⏳ Waiting for install lock...", "elapsed", time.Since(start).Round(time.Second))
			}
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
