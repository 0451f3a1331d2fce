package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// Environment variables that configure logging.
const (
	EnvLogLevel = "PSES_LOG_LEVEL"
	EnvJSONLog  = "PSES_JSON_LOG"
	EnvLogPath  = "PSES_LOG_PATH"
)

const (
	terminalPrefix = "⚡ "
	plainPrefix    = "[pses] "
)

// Options controls logger construction. PSES_JSON_LOG=1 forces JSON output.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// Logger is an hclog.Logger whose prefixed output can be flushed.
type Logger struct {
	hclog.Logger
	prefix *PrefixWriter
}

// New builds a logger from opts. A level of the form "json:<level>" turns on
// JSON output as well.
func New(opts Options) *Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level := opts.Level
	jsonFormat := opts.JSON || os.Getenv(EnvJSONLog) == "1"
	if rest, ok := strings.CutPrefix(level, "json:"); ok {
		jsonFormat = true
		level = rest
	}

	var prefix *PrefixWriter
	if !jsonFormat {
		prefix = NewPrefixWriter(prefixFor(output), output)
		output = prefix
	}

	return &Logger{
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:       opts.Name,
			Level:      hclog.LevelFromString(level),
			JSONFormat: jsonFormat,
			Output:     output,
			TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
			TimeFn: func() time.Time {
				return time.Now().UTC()
			},
		}),
		prefix: prefix,
	}
}

// Flush writes out a trailing partial line, if any.
func (l *Logger) Flush() error {
	if l.prefix == nil {
		return nil
	}
	return l.prefix.Flush()
}

// OpenLogFile opens path for appending, creating it if needed. The caller
// closes the returned file.
func OpenLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

func prefixFor(w io.Writer) string {
	if runtime.GOOS == "windows" {
		return plainPrefix
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return terminalPrefix
		}
	}
	return plainPrefix
}
