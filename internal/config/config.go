// Package config holds the launcher configuration.
package config

import (
	"time"

	"github.com/provide-io/pses-launcher/pkg/bootstrap"
)

// Exec modes for handing the launch plan to the operating system.
const (
	ExecModeSpawn = "spawn"
	ExecModeExec  = "exec"
)

// Config is the root configuration.
type Config struct {
	Root           string        `yaml:"root"`
	TempDir        string        `yaml:"temp_dir"`
	Version        string        `yaml:"version"`
	ReleaseHost    string        `yaml:"release_host"`
	LockTimeout    time.Duration `yaml:"lock_timeout"`
	// HTTPTimeout of zero means no timeout.
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	ExecMode       string        `yaml:"exec_mode"`
	HostName       string        `yaml:"host_name"`
	HostVersion    string        `yaml:"host_version"`
	ServerLogLevel string        `yaml:"server_log_level"`
	Log            Log           `yaml:"log"`
}

// Log configures the launcher's own logger.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Path  string `yaml:"path"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Version:        bootstrap.ServerVersion,
		ReleaseHost:    bootstrap.DefaultReleaseHost,
		LockTimeout:    bootstrap.DefaultLockWait,
		ExecMode:       ExecModeSpawn,
		HostName:       bootstrap.DefaultHostName,
		HostVersion:    bootstrap.DefaultHostVersion,
		ServerLogLevel: bootstrap.DefaultServerLogLevel,
		Log: Log{
			Level: "warn",
		},
	}
}

// Settings converts the configuration into bootstrap settings. root is
// used when the configuration leaves Root empty.
func (c *Config) Settings(root string) bootstrap.Settings {
	if c.Root != "" {
		root = c.Root
	}
	return bootstrap.Settings{
		Root:        root,
		TempDir:     c.TempDir,
		Version:     c.Version,
		ReleaseHost: c.ReleaseHost,
		LockTimeout: c.LockTimeout,
		Identity: bootstrap.HostIdentity{
			Name:     c.HostName,
			Version:  c.HostVersion,
			LogLevel: c.ServerLogLevel,
		},
	}
}
