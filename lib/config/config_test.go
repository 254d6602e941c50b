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

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Bus.Backend != BackendNATS {
		t.Errorf("expected backend=nats, got %s", cfg.Bus.Backend)
	}
	if cfg.Driver.Channel != "tmuxlink-driver" {
		t.Errorf("expected channel=tmuxlink-driver, got %s", cfg.Driver.Channel)
	}
	if cfg.Driver.OpenTimeout != 5*time.Second {
		t.Errorf("expected open_timeout=5s, got %s", cfg.Driver.OpenTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TMUXLINK_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "TMUXLINK_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "tmuxlink.yaml", `
environment: staging
tmux:
  session: work
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Tmux.Session != "work" {
		t.Errorf("expected session=work, got %s", cfg.Tmux.Session)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "tmuxlink.yaml", `
environment: development

tmux:
  socket: /run/test/tmux.sock
  session: shared
  config_file: /etc/tmuxlink/tmux.conf

bus:
  url: nats://bus.internal:4222
  name: driver-1
  compress_threshold: 4096

driver:
  channel: team-driver
  open_timeout: 10s
  stale_request_after: 2s
  window_channel_prefix: team-window-

log:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Tmux.Socket != "/run/test/tmux.sock" {
		t.Errorf("expected socket=/run/test/tmux.sock, got %s", cfg.Tmux.Socket)
	}
	if cfg.Tmux.Session != "shared" {
		t.Errorf("expected session=shared, got %s", cfg.Tmux.Session)
	}
	if cfg.Tmux.ConfigFile != "/etc/tmuxlink/tmux.conf" {
		t.Errorf("expected config_file=/etc/tmuxlink/tmux.conf, got %s", cfg.Tmux.ConfigFile)
	}
	if cfg.Bus.URL != "nats://bus.internal:4222" {
		t.Errorf("expected url=nats://bus.internal:4222, got %s", cfg.Bus.URL)
	}
	if cfg.Bus.Name != "driver-1" {
		t.Errorf("expected name=driver-1, got %s", cfg.Bus.Name)
	}
	if cfg.Bus.CompressThreshold != 4096 {
		t.Errorf("expected compress_threshold=4096, got %d", cfg.Bus.CompressThreshold)
	}
	if cfg.Driver.Channel != "team-driver" {
		t.Errorf("expected channel=team-driver, got %s", cfg.Driver.Channel)
	}
	if cfg.Driver.OpenTimeout != 10*time.Second {
		t.Errorf("expected open_timeout=10s, got %s", cfg.Driver.OpenTimeout)
	}
	if cfg.Driver.StaleRequestAfter != 2*time.Second {
		t.Errorf("expected stale_request_after=2s, got %s", cfg.Driver.StaleRequestAfter)
	}
	if cfg.Driver.WindowChannelPrefix != "team-window-" {
		t.Errorf("expected window_channel_prefix=team-window-, got %s", cfg.Driver.WindowChannelPrefix)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("LogLevel: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("expected level=debug, got %s", level)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	path := writeConfig(t, "tmuxlink.jsonc", `{
  // Shared development driver.
  "tmux": {"session": "jsonc-session"},
  "driver": {
    "open_timeout": "3s", /* generous for slow laptops */
  },
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Tmux.Session != "jsonc-session" {
		t.Errorf("expected session=jsonc-session, got %s", cfg.Tmux.Session)
	}
	if cfg.Driver.OpenTimeout != 3*time.Second {
		t.Errorf("expected open_timeout=3s, got %s", cfg.Driver.OpenTimeout)
	}
	if cfg.Driver.Channel != "tmuxlink-driver" {
		t.Errorf("expected default channel to survive, got %s", cfg.Driver.Channel)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeConfig(t, "tmuxlink.yaml", "driver: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "tmuxlink.yaml", `
environment: production

tmux:
  session: dev

production:
  tmux:
    session: prod
  bus:
    url: nats://prod:4222
  driver:
    open_timeout: 30s
  log:
    level: error
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Tmux.Session != "prod" {
		t.Errorf("expected session=prod, got %s", cfg.Tmux.Session)
	}
	if cfg.Bus.URL != "nats://prod:4222" {
		t.Errorf("expected url=nats://prod:4222, got %s", cfg.Bus.URL)
	}
	if cfg.Driver.OpenTimeout != 30*time.Second {
		t.Errorf("expected open_timeout=30s, got %s", cfg.Driver.OpenTimeout)
	}
	if cfg.Driver.StaleRequestAfter != 5*time.Second {
		t.Errorf("expected stale_request_after untouched, got %s", cfg.Driver.StaleRequestAfter)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected level=error, got %s", cfg.Log.Level)
	}
}

func TestProductionDefaults(t *testing.T) {
	path := writeConfig(t, "tmuxlink.yaml", "environment: production\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected production level=warn, got %s", cfg.Log.Level)
	}
}

func TestOverridesIgnoredForOtherEnvironments(t *testing.T) {
	path := writeConfig(t, "tmuxlink.yaml", `
environment: development
production:
  tmux:
    session: prod
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Tmux.Session != "tmuxlink" {
		t.Errorf("expected session=tmuxlink, got %s", cfg.Tmux.Session)
	}
}

func TestSocketExpansion(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	path := writeConfig(t, "tmuxlink.yaml", "environment: development\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Tmux.Socket != "/run/user/1000/tmuxlink/tmux.sock" {
		t.Errorf("expected expanded socket, got %s", cfg.Tmux.Socket)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/tmuxlink",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/tmuxlink",
		},
		{
			input:    "${TMUXLINK_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.Environment = "invalid" },
			wantErr: true,
		},
		{
			name:    "empty session",
			modify:  func(c *Config) { c.Tmux.Session = "" },
			wantErr: true,
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Bus.Backend = "kafka" },
			wantErr: true,
		},
		{
			name:    "negative compress threshold",
			modify:  func(c *Config) { c.Bus.CompressThreshold = -1 },
			wantErr: true,
		},
		{
			name:    "zero open timeout",
			modify:  func(c *Config) { c.Driver.OpenTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative stale threshold",
			modify:  func(c *Config) { c.Driver.StaleRequestAfter = -time.Second },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "chatty" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureSocketDir(t *testing.T) {
	cfg := Default()
	cfg.Tmux.Socket = filepath.Join(t.TempDir(), "nested", "tmux.sock")

	if err := cfg.EnsureSocketDir(); err != nil {
		t.Fatalf("EnsureSocketDir failed: %v", err)
	}
	info, err := os.Stat(filepath.Dir(cfg.Tmux.Socket))
	if err != nil {
		t.Fatalf("socket dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", filepath.Dir(cfg.Tmux.Socket))
	}
}
