// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arc.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Daemon.DefaultMode != "mini" {
		t.Errorf("expected default_mode=mini, got %s", cfg.Daemon.DefaultMode)
	}
	if cfg.SessionManager.Bus != "system" {
		t.Errorf("expected bus=system, got %s", cfg.SessionManager.Bus)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresArcConfig(t *testing.T) {
	t.Setenv("ARC_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when ARC_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "ARC_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithArcConfig(t *testing.T) {
	path := writeConfig(t, `
environment: staging
paths:
  runtime_dir: /test/run
daemon:
  default_mode: full
`)
	t.Setenv("ARC_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Daemon.DefaultMode != "full" {
		t.Errorf("expected default_mode=full, got %s", cfg.Daemon.DefaultMode)
	}
	if cfg.Daemon.ControlSocket != "/test/run/control.sock" {
		t.Errorf("expected control socket under runtime dir, got %s", cfg.Daemon.ControlSocket)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "daemon: [unclosed")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: development
daemon:
  log_level: info
  stop_timeout: 10s
development:
  daemon:
    log_level: debug
    stop_timeout: 2s
  session_manager:
    bus: session
production:
  daemon:
    log_level: error
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Daemon.LogLevel != "debug" {
		t.Errorf("expected development override log_level=debug, got %s", cfg.Daemon.LogLevel)
	}
	if cfg.StopTimeout() != 2*time.Second {
		t.Errorf("expected stop timeout 2s, got %v", cfg.StopTimeout())
	}
	if cfg.SessionManager.Bus != "session" {
		t.Errorf("expected bus=session, got %s", cfg.SessionManager.Bus)
	}
	// Fields the section leaves empty keep their base values.
	if cfg.SessionManager.CallTimeout != "25s" {
		t.Errorf("expected call_timeout=25s, got %s", cfg.SessionManager.CallTimeout)
	}
}

func TestProductionDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
environment: production
daemon:
  log_level: debug
  metrics_address: 0.0.0.0:9466
`))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Daemon.LogLevel != "warn" {
		t.Errorf("expected production log_level=warn, got %s", cfg.Daemon.LogLevel)
	}
	if cfg.Daemon.MetricsAddress != "127.0.0.1:9466" {
		t.Errorf("expected loopback metrics address, got %s", cfg.Daemon.MetricsAddress)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("ARC_TEST_DIR", "/from/env")

	tests := []struct {
		input string
		vars  map[string]string
		want  string
	}{
		{"${ARC_RUNTIME}/control.sock", map[string]string{"ARC_RUNTIME": "/run/arc"}, "/run/arc/control.sock"},
		{"${ARC_TEST_DIR}/x", nil, "/from/env/x"},
		{"${ARC_TEST_UNSET:-/fallback}/arc", nil, "/fallback/arc"},
		{"${ARC_TEST_UNSET}", nil, ""},
		{"${ARC_TEST_DIR:-/fallback}", map[string]string{"ARC_TEST_DIR": "/from/vars"}, "/from/vars"},
		{"/plain/path", nil, "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, test.vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestResolveRuntimeDirFromXDG(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	cfg := Default()
	cfg.Resolve()
	if cfg.Paths.RuntimeDir != "/run/user/1000/arc" {
		t.Errorf("runtime_dir = %s, want /run/user/1000/arc", cfg.Paths.RuntimeDir)
	}
	if cfg.Daemon.ControlSocket != "/run/user/1000/arc/control.sock" {
		t.Errorf("control_socket = %s", cfg.Daemon.ControlSocket)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr []string
	}{
		{"valid", func(*Config) {}, nil},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, []string{"invalid environment: qa"}},
		{"bad mode", func(c *Config) { c.Daemon.DefaultMode = "maxi" }, []string{"daemon.default_mode"}},
		{"bad bus", func(c *Config) { c.SessionManager.Bus = "tcp" }, []string{"session_manager.bus"}},
		{"zero timeout", func(c *Config) { c.Daemon.StopTimeout = "0s" }, []string{"daemon.stop_timeout"}},
		{"unparseable timeout", func(c *Config) { c.SessionManager.CallTimeout = "soon" }, []string{"session_manager.call_timeout"}},
		{
			name: "multiple errors",
			modify: func(c *Config) {
				c.Daemon.LogLevel = "trace"
				c.Daemon.ControlSocket = ""
			},
			wantErr: []string{"daemon.log_level", "daemon.control_socket is required"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.Resolve()
			test.modify(cfg)
			err := cfg.Validate()
			if len(test.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want errors containing %v", test.wantErr)
			}
			for _, want := range test.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() = %q, missing %q", err.Error(), want)
				}
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	for value, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		cfg := Default()
		cfg.Daemon.LogLevel = value
		if got := cfg.LogLevel(); got != want {
			t.Errorf("LogLevel(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestEnsurePaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.RuntimeDir = filepath.Join(t.TempDir(), "nested", "arc")
	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths() failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.RuntimeDir); err != nil || !info.IsDir() {
		t.Errorf("runtime dir not created: %v", err)
	}
}
