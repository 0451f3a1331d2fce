package host

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/provide-io/pses-launcher/pkg/bootstrap"
)

// LockFile creates the lock file exclusively and stamps it with our PID.
// A lock left behind by a dead process is removed first. A lock without a
// readable PID may belong to a holder that has not written it yet, so it
// only counts as stale once it is older than the stale lock age.
func (h *LocalHost) LockFile(req bootstrap.LockRequest) error {
	lockPath := req.Path

	if data, err := os.ReadFile(lockPath); err == nil {
		h.logger.Debug("🔍 Lock file exists, checking if it's stale...")
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		switch {
		case perr != nil:
			age, young := h.lockIsYoung(lockPath)
			if young {
				h.logger.Debug("🔒 Lock without PID is recent, treating as held", "path", lockPath, "age", age)
				return fmt.Errorf("%w: %s (pid not written yet)", bootstrap.ErrLockHeld, lockPath)
			}
			h.logger.Info("🧹 Removing invalid lock file (couldn't parse PID)", "path", lockPath, "age", age)
			_ = os.Remove(lockPath)
		case pid == os.Getpid():
			return fmt.Errorf("%w: %s already held by this process", bootstrap.ErrLockHeld, lockPath)
		case !isProcessRunning(pid):
			h.logger.Info("🧹 Removing stale lock from dead process", "pid", pid)
			_ = os.Remove(lockPath)
		default:
			h.logger.Debug("🔒 Lock held by active process", "pid", pid)
			return fmt.Errorf("%w: %s (pid %d)", bootstrap.ErrLockHeld, lockPath, pid)
		}
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", bootstrap.ErrLockHeld, lockPath)
		}
		return fmt.Errorf("failed to create lock file %s: %w", lockPath, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		_ = os.Remove(lockPath)
		return fmt.Errorf("failed to write lock file %s: %w", lockPath, err)
	}
	return nil
}

// lockIsYoung reports the lock's age and whether it is under the stale lock
// age. A lock that cannot be stat'ed is reported young.
func (h *LocalHost) lockIsYoung(lockPath string) (time.Duration, bool) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return 0, true
	}
	age := h.now().Sub(info.ModTime())
	return age, age < h.staleLockAge
}
