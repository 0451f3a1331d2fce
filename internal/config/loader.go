package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/provide-io/pses-launcher/pkg/logging"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "pses-launcher.yaml"

// LoadFrom returns a Config using the hierarchy: defaults < YAML < ENV.
// A missing file at yamlPath is not an error.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays non-empty PSES_* variables onto cfg.
func loadEnv(cfg *Config) {
	setString(&cfg.Root, "PSES_ROOT")
	setString(&cfg.TempDir, "PSES_TEMP_DIR")
	setString(&cfg.Version, "PSES_VERSION")
	setString(&cfg.ReleaseHost, "PSES_RELEASE_HOST")
	setDuration(&cfg.LockTimeout, "PSES_LOCK_TIMEOUT")
	setDuration(&cfg.HTTPTimeout, "PSES_HTTP_TIMEOUT")
	setString(&cfg.ExecMode, "PSES_EXEC_MODE")
	setString(&cfg.HostName, "PSES_HOST_NAME")
	setString(&cfg.HostVersion, "PSES_HOST_VERSION")
	setString(&cfg.ServerLogLevel, "PSES_SERVER_LOG_LEVEL")

	// Logging
	setString(&cfg.Log.Level, logging.EnvLogLevel)
	setBool(&cfg.Log.JSON, logging.EnvJSONLog)
	setString(&cfg.Log.Path, logging.EnvLogPath)
}

// Validate rejects values the launcher cannot act on.
func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("version is required")
	}
	if c.ReleaseHost == "" {
		return errors.New("release_host is required")
	}
	if c.LockTimeout < 0 {
		return errors.New("lock_timeout must be >= 0")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("http_timeout must be >= 0")
	}
	switch c.ExecMode {
	case ExecModeSpawn, ExecModeExec:
	default:
		return fmt.Errorf("exec_mode must be %q or %q, got %q", ExecModeSpawn, ExecModeExec, c.ExecMode)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
