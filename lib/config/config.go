// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "TMUXLINK_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// BackendNATS is the only bus backend that crosses process boundaries.
const BackendNATS = "nats"

// Config is the master configuration for tmuxlink binaries.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Tmux configures the tmux server the driver attaches to.
	Tmux TmuxConfig `yaml:"tmux"`

	// Bus configures the pub/sub transport between driver and clients.
	Bus BusConfig `yaml:"bus"`

	// Driver configures window sharing.
	Driver DriverConfig `yaml:"driver"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Tmux   *TmuxConfig   `yaml:"tmux,omitempty"`
	Bus    *BusConfig    `yaml:"bus,omitempty"`
	Driver *DriverConfig `yaml:"driver,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// TmuxConfig selects the tmux server and session.
type TmuxConfig struct {
	// Socket is the tmux server socket path (tmux -S).
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/tmuxlink/tmux.sock
	Socket string `yaml:"socket"`

	// Session is the session the driver attaches to, created if missing.
	// Default: tmuxlink
	Session string `yaml:"session"`

	// ConfigFile is passed to tmux with -f when the driver starts the
	// server. Empty keeps tmux's default (~/.tmux.conf).
	ConfigFile string `yaml:"config_file"`
}

// BusConfig configures the message bus.
type BusConfig struct {
	// Backend selects the bus implementation. Only "nats" is supported.
	Backend string `yaml:"backend"`

	// URL is the server URL, for example nats://127.0.0.1:4222.
	URL string `yaml:"url"`

	// Name is the client connection name reported to the server.
	// Default: tmuxlink
	Name string `yaml:"name"`

	// CompressThreshold is the payload size in bytes above which
	// payloads are zstd-compressed. Zero keeps the transport default.
	CompressThreshold int `yaml:"compress_threshold"`
}

// DriverConfig configures the driver and the requesters that talk to it.
type DriverConfig struct {
	// Channel is the rendezvous channel name.
	// Default: tmuxlink-driver
	Channel string `yaml:"channel"`

	// OpenTimeout bounds how long a requester waits for a window.
	// Default: 5s
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// StaleRequestAfter is the age past which the driver discards a
	// pending open request instead of answering it.
	// Default: 5s
	StaleRequestAfter time.Duration `yaml:"stale_request_after"`

	// WindowChannelPrefix prefixes the per-window channel names.
	// Default: tmuxlink-window-
	WindowChannelPrefix string `yaml:"window_channel_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration. Load merges the file on
// top of it.
func Default() *Config {
	return &Config{
		Environment: Development,
		Tmux: TmuxConfig{
			Socket:  "${XDG_RUNTIME_DIR:-/tmp}/tmuxlink/tmux.sock",
			Session: "tmuxlink",
		},
		Bus: BusConfig{
			Backend: BackendNATS,
			URL:     "nats://127.0.0.1:4222",
			Name:    "tmuxlink",
		},
		Driver: DriverConfig{
			Channel:             "tmuxlink-driver",
			OpenTimeout:         5 * time.Second,
			StaleRequestAfter:   5 * time.Second,
			WindowChannelPrefix: "tmuxlink-window-",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by TMUXLINK_CONFIG.
// There is no discovery or fallback: if the variable is unset, Load
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your tmuxlink.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .jsonc have their comments and trailing commas stripped and are
// then parsed like YAML (JSON is a YAML subset).
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".jsonc") {
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: quieter logs.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Level: "warn"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Tmux != nil {
		if overrides.Tmux.Socket != "" {
			c.Tmux.Socket = overrides.Tmux.Socket
		}
		if overrides.Tmux.Session != "" {
			c.Tmux.Session = overrides.Tmux.Session
		}
		if overrides.Tmux.ConfigFile != "" {
			c.Tmux.ConfigFile = overrides.Tmux.ConfigFile
		}
	}

	if overrides.Bus != nil {
		if overrides.Bus.Backend != "" {
			c.Bus.Backend = overrides.Bus.Backend
		}
		if overrides.Bus.URL != "" {
			c.Bus.URL = overrides.Bus.URL
		}
		if overrides.Bus.Name != "" {
			c.Bus.Name = overrides.Bus.Name
		}
		if overrides.Bus.CompressThreshold != 0 {
			c.Bus.CompressThreshold = overrides.Bus.CompressThreshold
		}
	}

	if overrides.Driver != nil {
		if overrides.Driver.Channel != "" {
			c.Driver.Channel = overrides.Driver.Channel
		}
		if overrides.Driver.OpenTimeout != 0 {
			c.Driver.OpenTimeout = overrides.Driver.OpenTimeout
		}
		if overrides.Driver.StaleRequestAfter != 0 {
			c.Driver.StaleRequestAfter = overrides.Driver.StaleRequestAfter
		}
		if overrides.Driver.WindowChannelPrefix != "" {
			c.Driver.WindowChannelPrefix = overrides.Driver.WindowChannelPrefix
		}
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Tmux.Socket = expandVars(c.Tmux.Socket, vars)
	c.Tmux.ConfigFile = expandVars(c.Tmux.ConfigFile, vars)
	c.Bus.URL = expandVars(c.Bus.URL, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Tmux.Socket == "" {
		errs = append(errs, fmt.Errorf("tmux.socket is required"))
	}
	if c.Tmux.Session == "" {
		errs = append(errs, fmt.Errorf("tmux.session is required"))
	}

	if c.Bus.Backend != BackendNATS {
		errs = append(errs, fmt.Errorf("bus.backend %q is not supported (want %q)", c.Bus.Backend, BackendNATS))
	}
	if c.Bus.URL == "" {
		errs = append(errs, fmt.Errorf("bus.url is required"))
	}
	if c.Bus.CompressThreshold < 0 {
		errs = append(errs, fmt.Errorf("bus.compress_threshold must not be negative"))
	}

	if c.Driver.Channel == "" {
		errs = append(errs, fmt.Errorf("driver.channel is required"))
	}
	if c.Driver.OpenTimeout <= 0 {
		errs = append(errs, fmt.Errorf("driver.open_timeout must be positive"))
	}
	if c.Driver.StaleRequestAfter <= 0 {
		errs = append(errs, fmt.Errorf("driver.stale_request_after must be positive"))
	}
	if c.Driver.WindowChannelPrefix == "" {
		errs = append(errs, fmt.Errorf("driver.window_channel_prefix is required"))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsureSocketDir creates the directory holding the tmux socket.
func (c *Config) EnsureSocketDir() error {
	dir := filepath.Dir(c.Tmux.Socket)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
