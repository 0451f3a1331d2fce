package host

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/provide-io/pses-launcher/pkg/bootstrap"
	"github.com/provide-io/pses-launcher/pkg/utils/shellparse"
)

// ExitError reports a language server that exited with a non-zero code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("language server exited with code %d", e.Code)
}

// StartLSP runs the planned server with the launcher's stdio wired to it.
// In spawn mode it returns when the server exits. In exec mode it replaces
// the current process where the platform supports it and only returns on
// failure.
func (h *LocalHost) StartLSP(plan bootstrap.LaunchPlan) error {
	executable := h.resolveExecutable(plan.Executable())
	args := plan.Arguments()

	h.logger.Debug("🚀 Full command", "command", shellparse.Join(append([]string{executable}, args...)))

	if h.mode == ModeExec {
		return h.execServer(executable, args)
	}
	return h.spawnServer(executable, args)
}

func (h *LocalHost) spawnServer(executable string, args []string) error {
	h.logger.Debug("🔄 Using spawn mode - child process will be created")

	cmd := exec.CommandContext(h.ctx, executable, args...)
	cmd.Stdin = h.stdin
	cmd.Stdout = h.stdout
	cmd.Stderr = h.stderr
	cmd.Env = h.env

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", executable, err)
	}
	h.logger.Info("🚀 Language server started", "pid", cmd.Process.Pid)

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.logger.Info("⏹️ Language server exited", "code", exitErr.ExitCode())
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("process error: %w", err)
	}

	h.logger.Info("✅ Language server exited cleanly")
	return nil
}

// resolveExecutable looks the executable up on PATH. On Windows a missing
// powershell.exe falls back to pwsh.exe. Unresolvable names are returned
// unchanged so the start error names them.
func (h *LocalHost) resolveExecutable(executable string) string {
	if strings.ContainsAny(executable, `/\`) {
		return filepath.Clean(executable)
	}

	if resolved, err := exec.LookPath(executable); err == nil {
		h.logger.Debug("✅ Resolved executable via PATH", "input", executable, "resolved", resolved)
		return resolved
	}

	if runtime.GOOS == "windows" && strings.EqualFold(executable, bootstrap.WindowsExecutable) {
		if resolved, err := exec.LookPath("pwsh.exe"); err == nil {
			h.logger.Debug("✅ Resolved executable via Windows fallback", "input", executable, "resolved", resolved)
			return resolved
		}
	}

	h.logger.Debug("⚠️ Could not resolve executable in PATH, using as-is", "executable", executable)
	return executable
}
