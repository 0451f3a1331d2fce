package main

import (
	"errors"
	"io/fs"

	"github.com/provide-io/pses-launcher/internal/host"
	"github.com/provide-io/pses-launcher/pkg/bootstrap"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitPanic           = 101
	ExitDownloadError   = 102
	ExitExtractionError = 103
	ExitExecutionError  = 104
	ExitInvalidArgs     = 105
	ExitIOError         = 106
	ExitLockError       = 107
)

// errUsage marks command line mistakes.
var errUsage = errors.New("invalid arguments")

// exitCodeFor maps a command error to the process exit code. A server that
// exited non-zero passes its own code through.
func exitCodeFor(err error) int {
	var exitErr *host.ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, bootstrap.ErrUnsupportedPlatform):
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, errUsage), errors.Is(err, bootstrap.ErrInvalidPayload):
		return ExitInvalidArgs
	case errors.Is(err, bootstrap.ErrDownloadFailed):
		return ExitDownloadError
	case errors.Is(err, bootstrap.ErrExtractionFailed):
		return ExitExtractionError
	case errors.Is(err, bootstrap.ErrLockHeld), errors.Is(err, bootstrap.ErrLockTimeout):
		return ExitLockError
	case errors.Is(err, bootstrap.ErrEmptyCommand):
		return ExitExecutionError
	case errors.As(err, new(*fs.PathError)):
		return ExitIOError
	default:
		return ExitExecutionError
	}
}
