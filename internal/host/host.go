// Package host is a reference implementation of bootstrap.Host backed by
// the local file system, net/http and os/exec.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/pses-launcher/pkg/bootstrap"
)

// Launch modes.
const (
	ModeSpawn = "spawn"
	ModeExec  = "exec"
)

// Options configures a LocalHost.
type Options struct {
	Context     context.Context
	HTTPClient  *http.Client
	HTTPTimeout time.Duration
	// Mode is ModeSpawn (default) or ModeExec.
	Mode   string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Env is the server environment. Nil inherits the launcher's.
	Env []string
	// StaleLockAge is how old a lock without a PID must be before it is
	// reclaimed. Defaults to bootstrap.DefaultLockWait.
	StaleLockAge time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// LocalHost performs bootstrap side effects on the local machine.
type LocalHost struct {
	ctx    context.Context
	client *http.Client
	mode   string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    []string
	logger hclog.Logger

	staleLockAge time.Duration
	now          func() time.Time
}

var _ bootstrap.Host = (*LocalHost)(nil)

// New creates a LocalHost.
func New(opts Options, logger hclog.Logger) *LocalHost {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeSpawn
	}
	h := &LocalHost{
		ctx:    ctx,
		client: client,
		mode:   mode,
		stdin:  opts.Stdin,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
		env:    opts.Env,
		logger: logger,

		staleLockAge: opts.StaleLockAge,
		now:          opts.Clock,
	}
	if h.staleLockAge <= 0 {
		h.staleLockAge = bootstrap.DefaultLockWait
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.stdin == nil {
		h.stdin = os.Stdin
	}
	if h.stdout == nil {
		h.stdout = os.Stdout
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}
	return h
}

// RemoveFile deletes a file. A file that is already gone is not an error.
func (h *LocalHost) RemoveFile(req bootstrap.RemoveRequest) error {
	if err := os.Remove(req.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", req.Path, err)
	}
	h.logger.Trace("🗑️ Removed file", "path", req.Path)
	return nil
}
