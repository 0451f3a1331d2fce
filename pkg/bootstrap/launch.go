// SPDX-License-Identifier: Apache-2.0
package bootstrap

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/pses-launcher/pkg/utils/shellparse"
)

// SessionPaths are the per-launch files handed to the server. They are
// never reused and never cleaned up here.
type SessionPaths struct {
	Directory          string `json:"directory"`
	LogPath            string `json:"log_path"`
	SessionDetailsPath string `json:"session_details_path"`
}

// NewSessionPaths derives the log and session-details files of dir.
func NewSessionPaths(dir string) SessionPaths {
	return SessionPaths{
		Directory:          dir,
		LogPath:            filepath.Join(dir, SessionLogFile),
		SessionDetailsPath: filepath.Join(dir, SessionDetailsFile),
	}
}

// HostIdentity is what the server is told about the editor launching it.
type HostIdentity struct {
	Name     string
	Version  string
	LogLevel string
}

func (h HostIdentity) withDefaults() HostIdentity {
	if h.Name == "" {
		h.Name = DefaultHostName
	}
	if h.Version == "" {
		h.Version = DefaultHostVersion
	}
	if h.LogLevel == "" {
		h.LogLevel = DefaultServerLogLevel
	}
	return h
}

// LaunchPlan is the fully resolved description of the server process.
// It cannot be modified after the planner builds it.
type LaunchPlan struct {
	executable string
	transport  string
	arguments  []string
	options    ServerOptions
	useStdio   bool
	session    SessionPaths
}

// Executable returns the program to run.
func (p LaunchPlan) Executable() string { return p.executable }

// Transport returns the transport name reported to the host.
func (p LaunchPlan) Transport() string { return p.transport }

// Arguments returns a copy of the ordered argument vector.
func (p LaunchPlan) Arguments() []string {
	return append([]string(nil), p.arguments...)
}

// Options returns the working options forwarded to the host.
func (p LaunchPlan) Options() ServerOptions { return p.options }

// UseStdio reports whether the server talks LSP over stdin/stdout.
func (p LaunchPlan) UseStdio() bool { return p.useStdio }

// Session returns the session paths of this launch.
func (p LaunchPlan) Session() SessionPaths { return p.session }

// MarshalJSON renders the plan for diagnostics.
func (p LaunchPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Executable string          `json:"executable"`
		Transport  string          `json:"transport"`
		Arguments  []string        `json:"arguments"`
		Options    json.RawMessage `json:"options,omitempty"`
		UseStdio   bool            `json:"use_stdio"`
		Session    SessionPaths    `json:"session"`
	}{
		Executable: p.executable,
		Transport:  p.transport,
		Arguments:  p.Arguments(),
		Options:    p.options.Raw(),
		UseStdio:   p.useStdio,
		Session:    p.session,
	})
}

// Planner builds launch plans.
type Planner struct {
	paths    *Paths
	identity HostIdentity
	clock    func() time.Time
	logger   hclog.Logger
}

// NewPlanner creates a Planner. A nil clock uses time.Now.
func NewPlanner(paths *Paths, identity HostIdentity, clock func() time.Time, logger hclog.Logger) *Planner {
	if clock == nil {
		clock = time.Now
	}
	return &Planner{
		paths:    paths,
		identity: identity.withDefaults(),
		clock:    clock,
		logger:   logger,
	}
}

// Plan builds the LaunchPlan for platform. The session token is the
// current wall-clock second, so two launches within the same second share
// a session directory.
func (p *Planner) Plan(platform PlatformInfo, opts ServerOptions) (LaunchPlan, error) {
	session := NewSessionPaths(p.paths.SessionDir(p.clock().Unix()))
	installDir := p.paths.InstallDir()

	args := DefaultArguments(installDir, session, p.identity)
	if opts.HasArgsOverride() {
		override, err := shellparse.Split(opts.BinaryArgs)
		switch {
		case err != nil:
			p.logger.Warn("⚠️ Ignoring unparsable binary.args override", "args", opts.BinaryArgs, "error", err)
		case len(override) == 0:
			p.logger.Debug("binary.args override is blank, using defaults")
		default:
			args = expandPlaceholders(override, installDir, session)
			p.logger.Info("🔧 Using binary.args override", "count", len(args))
		}
	}

	executable := ExecutableFor(platform.OS)
	if opts.BinaryPath != "" {
		executable = opts.BinaryPath
		p.logger.Info("🔧 Using binary.path override", "executable", executable)
	}
	if strings.TrimSpace(executable) == "" {
		return LaunchPlan{}, ErrEmptyCommand
	}

	forwarded, err := opts.withArguments(args)
	if err != nil {
		p.logger.Warn("⚠️ Failed to record arguments in options", "error", err)
		forwarded = opts
	}

	plan := LaunchPlan{
		executable: executable,
		transport:  TransportName,
		arguments:  args,
		options:    forwarded,
		useStdio:   true,
		session:    session,
	}
	p.logger.Debug("🎯 Launch plan", "executable", executable, "args", args, "session", session.Directory)
	return plan, nil
}

// DefaultArguments returns the argument vector Start-EditorServices.ps1
// expects. The script reads flag/value pairs in order.
func DefaultArguments(installDir string, session SessionPaths, identity HostIdentity) []string {
	identity = identity.withDefaults()
	hostName := fmt.Sprintf("'%s'", identity.Name)
	return []string{
		"-NoLogo",
		"-NoProfile",
		"-Command", filepath.ToSlash(filepath.Join(installDir, filepath.FromSlash(StartScriptRelPath))),
		"-BundleModulesPath", filepath.ToSlash(installDir),
		"-LogPath", filepath.ToSlash(session.LogPath),
		"-SessionDetailsPath", filepath.ToSlash(session.SessionDetailsPath),
		"-FeatureFlags", "@()",
		"-AdditionalModules", "@()",
		"-HostName", hostName,
		"-HostProfileId", hostName,
		"-HostVersion", identity.Version,
		"-Stdio",
		"-LogLevel", identity.LogLevel,
	}
}

// ExecutableFor returns the PowerShell executable for os.
func ExecutableFor(os OS) string {
	if os == OSWindows {
		return WindowsExecutable
	}
	return DefaultExecutable
}

// expandPlaceholders substitutes {install}, {session}, {log_path} and
// {session_details_path} in override arguments.
func expandPlaceholders(args []string, installDir string, session SessionPaths) []string {
	replacer := strings.NewReplacer(
		"{install}", filepath.ToSlash(installDir),
		"{session}", filepath.ToSlash(session.Directory),
		"{log_path}", filepath.ToSlash(session.LogPath),
		"{session_details_path}", filepath.ToSlash(session.SessionDetailsPath),
	)
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = replacer.Replace(arg)
	}
	return out
}
