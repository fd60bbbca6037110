// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration for the arc binaries.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths          PathsConfig          `yaml:"paths"`
	Daemon         DaemonConfig         `yaml:"daemon"`
	SessionManager SessionManagerConfig `yaml:"session_manager"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths          *PathsConfig          `yaml:"paths,omitempty"`
	Daemon         *DaemonConfig         `yaml:"daemon,omitempty"`
	SessionManager *SessionManagerConfig `yaml:"session_manager,omitempty"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// RuntimeDir holds the control socket. Default: ${XDG_RUNTIME_DIR:-/run}/arc
	RuntimeDir string `yaml:"runtime_dir"`
}

// DaemonConfig configures arc-daemon.
type DaemonConfig struct {
	// ControlSocket is the Unix socket the CLI talks to.
	// Default: ${ARC_RUNTIME}/control.sock
	ControlSocket string `yaml:"control_socket"`

	// MetricsAddress is the listen address for /metrics. Empty disables
	// the endpoint.
	MetricsAddress string `yaml:"metrics_address"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// DefaultMode is the mode used by a start request that names none.
	DefaultMode string `yaml:"default_mode"`

	// StopTimeout bounds how long a requested stop may wait for the
	// container before the session is forced down.
	StopTimeout string `yaml:"stop_timeout"`
}

// SessionManagerConfig configures the D-Bus transport.
type SessionManagerConfig struct {
	// Bus is "system" or "session".
	Bus string `yaml:"bus"`

	// CallTimeout bounds each session_manager method call.
	CallTimeout string `yaml:"call_timeout"`
}

// Default returns the base configuration the file is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			RuntimeDir: "${XDG_RUNTIME_DIR:-/run}/arc",
		},
		Daemon: DaemonConfig{
			ControlSocket:  "${ARC_RUNTIME}/control.sock",
			MetricsAddress: "127.0.0.1:9466",
			LogLevel:       "info",
			DefaultMode:    "mini",
			StopTimeout:    "10s",
		},
		SessionManager: SessionManagerConfig{
			Bus:         "system",
			CallTimeout: "25s",
		},
	}
}

// Load loads configuration from the file named by ARC_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("ARC_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ARC_CONFIG environment variable not set; " +
			"set it to the path of your arc.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the environment
// section, and expands path variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Resolve()
	return cfg, nil
}

// Resolve applies the environment section and expands path variables.
// LoadFile calls it; callers that start from Default without a file
// (the CLI resolving the control socket path) call it directly.
func (c *Config) Resolve() {
	c.applyEnvironmentOverrides()
	c.expandVariables()
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Daemon: &DaemonConfig{
					LogLevel:       "warn",
					MetricsAddress: "127.0.0.1:9466",
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		override(&c.Paths.RuntimeDir, overrides.Paths.RuntimeDir)
	}
	if overrides.Daemon != nil {
		override(&c.Daemon.ControlSocket, overrides.Daemon.ControlSocket)
		override(&c.Daemon.MetricsAddress, overrides.Daemon.MetricsAddress)
		override(&c.Daemon.LogLevel, overrides.Daemon.LogLevel)
		override(&c.Daemon.DefaultMode, overrides.Daemon.DefaultMode)
		override(&c.Daemon.StopTimeout, overrides.Daemon.StopTimeout)
	}
	if overrides.SessionManager != nil {
		override(&c.SessionManager.Bus, overrides.SessionManager.Bus)
		override(&c.SessionManager.CallTimeout, overrides.SessionManager.CallTimeout)
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.RuntimeDir = expandVars(c.Paths.RuntimeDir, vars)
	vars["ARC_RUNTIME"] = c.Paths.RuntimeDir

	c.Daemon.ControlSocket = expandVars(c.Daemon.ControlSocket, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Names in vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels = []string{"debug", "info", "warn", "error"}
	modes     = []string{"mini", "full"}
	buses     = []string{"system", "session"}
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.RuntimeDir == "" {
		errs = append(errs, errors.New("paths.runtime_dir is required"))
	}
	if c.Daemon.ControlSocket == "" {
		errs = append(errs, errors.New("daemon.control_socket is required"))
	}
	if !slices.Contains(logLevels, c.Daemon.LogLevel) {
		errs = append(errs, fmt.Errorf("daemon.log_level must be one of: %v", logLevels))
	}
	if !slices.Contains(modes, c.Daemon.DefaultMode) {
		errs = append(errs, fmt.Errorf("daemon.default_mode must be one of: %v", modes))
	}
	if _, err := positiveDuration(c.Daemon.StopTimeout); err != nil {
		errs = append(errs, fmt.Errorf("daemon.stop_timeout: %w", err))
	}
	if !slices.Contains(buses, c.SessionManager.Bus) {
		errs = append(errs, fmt.Errorf("session_manager.bus must be one of: %v", buses))
	}
	if _, err := positiveDuration(c.SessionManager.CallTimeout); err != nil {
		errs = append(errs, fmt.Errorf("session_manager.call_timeout: %w", err))
	}

	return errors.Join(errs...)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// StopTimeout returns daemon.stop_timeout. Call Validate first; an
// unparseable value yields zero.
func (c *Config) StopTimeout() time.Duration {
	d, _ := positiveDuration(c.Daemon.StopTimeout)
	return d
}

// CallTimeout returns session_manager.call_timeout. Call Validate first.
func (c *Config) CallTimeout() time.Duration {
	d, _ := positiveDuration(c.SessionManager.CallTimeout)
	return d
}

// LogLevel maps daemon.log_level to a slog level. Unknown values map to
// info.
func (c *Config) LogLevel() slog.Level {
	switch c.Daemon.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnsurePaths creates the runtime directory.
func (c *Config) EnsurePaths() error {
	if c.Paths.RuntimeDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.RuntimeDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Paths.RuntimeDir, err)
	}
	return nil
}
