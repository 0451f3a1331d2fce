package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/provide-io/pses-launcher/internal/config"
	"github.com/provide-io/pses-launcher/internal/host"
	"github.com/provide-io/pses-launcher/internal/installroot"
	"github.com/provide-io/pses-launcher/pkg/bootstrap"
	"github.com/provide-io/pses-launcher/pkg/logging"
)

const languageID = "powershell"

// app carries flag values and the state shared by every command.
type app struct {
	configPath  string
	logLevel    string
	root        string
	tempDir     string
	execMode    string
	payload     string
	payloadFile string
	options     string
	versionFlag bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	logger   hclog.Logger
	flushLog func() error
	closers  []io.Closer
}

func execute(args []string) int {
	return executeWith(args, os.Stdin, os.Stdout, os.Stderr)
}

func executeWith(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	cmd := a.rootCommand()
	cmd.SetArgs(args)

	err := cmd.Execute()
	a.close()

	code := exitCodeFor(err)
	var exitErr *host.ExitError
	if err != nil && code != ExitSuccess && !errors.As(err, &exitErr) {
		fmt.Fprintln(a.stderr, err)
	}
	return code
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pses-launcher",
		Short: "Install and launch PowerShell Editor Services",
		Long: `Install PowerShell Editor Services on first use and run it as a
language server over stdio. Without a subcommand, run is assumed.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.versionFlag {
				fmt.Fprintf(a.stdout, "pses-launcher %s\n", version)
				fmt.Fprintf(a.stdout, "Built: %s\n", buildTimestamp())
				fmt.Fprintf(a.stdout, "Server: PowerShellEditorServices %s\n", bootstrap.ServerVersion)
				return nil
			}
			return a.runServer(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultConfigFile, "Path to YAML configuration")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, json:<level>)")
	pf.StringVar(&a.root, "root", "", "Install root (defaults to the per-user data directory)")
	pf.StringVar(&a.tempDir, "temp-dir", "", "Directory for session directories")
	root.Flags().BoolVarP(&a.versionFlag, "version", "V", false, "Show version information")

	run := &cobra.Command{
		Use:   "run",
		Short: "Install if needed and start the language server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer(cmd.Context())
		},
	}
	for _, c := range []*cobra.Command{root, run} {
		a.payloadFlags(c)
	}
	run.Flags().StringVar(&a.execMode, "exec-mode", "", "spawn or exec")
	root.Flags().StringVar(&a.execMode, "exec-mode", "", "spawn or exec")

	plan := &cobra.Command{
		Use:   "plan",
		Short: "Install if needed and print the launch plan as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printPlan(cmd.Context())
		},
	}
	a.payloadFlags(plan)

	install := &cobra.Command{
		Use:   "install",
		Short: "Install the server without starting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.install(cmd.Context())
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the install state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.status()
		},
	}

	root.AddCommand(run, plan, install, status)
	return root
}

func (a *app) payloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.payload, "payload", "", "Initialization payload JSON")
	cmd.Flags().StringVar(&a.payloadFile, "payload-file", "", "File holding the initialization payload JSON")
	cmd.Flags().StringVar(&a.options, "options", "", "Server options JSON, used when no payload is given")
}

// setup loads configuration and builds the logger. Flags beat the
// environment, which beats the config file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if a.root != "" {
		cfg.Root = a.root
	}
	if a.tempDir != "" {
		cfg.TempDir = a.tempDir
	}
	if a.execMode != "" {
		cfg.ExecMode = a.execMode
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	a.cfg = cfg

	output := a.stderr
	if cfg.Log.Path != "" {
		f, err := logging.OpenLogFile(cfg.Log.Path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, f)
		output = f
	}
	logger := logging.New(logging.Options{
		Name:   "pses-launcher",
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: output,
	})
	a.logger = logger
	a.flushLog = logger.Flush
	return nil
}

// close flushes the log before closing the log file under it.
func (a *app) close() {
	if a.flushLog != nil {
		_ = a.flushLog()
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *app) settings() bootstrap.Settings {
	return a.cfg.Settings(installroot.GetRoot())
}

func (a *app) newHost(ctx context.Context) *host.LocalHost {
	return host.New(host.Options{
		Context:      ctx,
		HTTPTimeout:  a.cfg.HTTPTimeout,
		Mode:         a.cfg.ExecMode,
		Stdin:        a.stdin,
		Stdout:       a.stdout,
		Stderr:       a.stderr,
		StaleLockAge: a.cfg.LockTimeout,
	}, a.logger.Named("host"))
}

func (a *app) runServer(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	payload, err := a.readPayload()
	if err != nil {
		return err
	}
	return bootstrap.Initialize(payload, a.newHost(ctx), a.logger, a.settings())
}

func (a *app) printPlan(ctx context.Context) error {
	payload, err := a.readPayload()
	if err != nil {
		return err
	}
	info, err := bootstrap.DecodePluginInfo(payload)
	if err != nil {
		return err
	}

	recorder := &planRecorder{LocalHost: a.newHost(ctx)}
	if _, err := bootstrap.New(recorder, a.logger, a.settings()).Run(info); err != nil {
		if errors.Is(err, bootstrap.ErrUnsupportedPlatform) {
			fmt.Fprintln(a.stdout, "null")
		}
		return err
	}
	return writeJSON(a.stdout, recorder.plan)
}

func (a *app) install(ctx context.Context) error {
	report, err := bootstrap.New(a.newHost(ctx), a.logger, a.settings()).Install(bootstrap.CurrentPlatform())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\n", report.Final())
	return nil
}

// installStatus is printed by the status command.
type installStatus struct {
	Root       string              `json:"root"`
	InstallDir string              `json:"install_dir"`
	Installed  bool                `json:"installed"`
	Locked     bool                `json:"locked"`
	Record     *installroot.Record `json:"record,omitempty"`
}

func (a *app) status() error {
	paths, err := bootstrap.New(nil, a.logger, a.settings()).Paths()
	if err != nil {
		return err
	}

	st := installStatus{
		Root:       paths.Root(),
		InstallDir: paths.InstallDir(),
		Installed:  paths.InstallExists(),
	}
	if _, err := os.Stat(paths.LockFile()); err == nil {
		st.Locked = true
	}
	if rec, err := installroot.ReadRecord(paths.InstallDir()); err == nil {
		st.Record = &rec
	} else if !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("⚠️ Failed to read install record", "error", err)
	}
	return writeJSON(a.stdout, st)
}

// readPayload returns the payload from --payload-file or --payload, or
// synthesizes one for the current platform.
func (a *app) readPayload() ([]byte, error) {
	switch {
	case a.payloadFile != "" && a.payload != "":
		return nil, fmt.Errorf("%w: --payload and --payload-file are mutually exclusive", errUsage)
	case a.payloadFile != "":
		data, err := os.ReadFile(a.payloadFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	case a.payload != "":
		return []byte(a.payload), nil
	}

	return synthesizePayload(bootstrap.CurrentPlatform(), a.options)
}

func synthesizePayload(platform bootstrap.PlatformInfo, options string) ([]byte, error) {
	payload := []byte(`{}`)
	var err error
	if payload, err = sjson.SetBytes(payload, "arch", string(platform.Arch)); err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "os", string(platform.OS)); err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "configuration.languageId", languageID); err != nil {
		return nil, err
	}
	if options != "" {
		if !gjson.Valid(options) {
			return nil, fmt.Errorf("%w: --options is not valid JSON", errUsage)
		}
		if payload, err = sjson.SetRawBytes(payload, "configuration.options", []byte(options)); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// planRecorder captures the plan instead of starting the server.
type planRecorder struct {
	*host.LocalHost
	plan bootstrap.LaunchPlan
}

func (r *planRecorder) StartLSP(plan bootstrap.LaunchPlan) error {
	r.plan = plan
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
