//go:build !windows

package host

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// execServer replaces the current process with the server. It only
// returns on failure.
func (h *LocalHost) execServer(executable string, args []string) error {
	h.logger.Debug("🔄 Using exec mode - process will be replaced")

	binary, err := exec.LookPath(executable)
	if err != nil {
		return fmt.Errorf("failed to find command %s: %w", executable, err)
	}

	env := h.env
	if env == nil {
		env = os.Environ()
	}
	argv := append([]string{binary}, args...)

	h.logger.Info("🔄 Replacing process via exec()", "path", binary)
	err = unix.Exec(binary, argv, env)
	return fmt.Errorf("exec failed: %w", err)
}
