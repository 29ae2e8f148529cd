// Package config loads and watches the quill configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quillagent/quill/pkg/permission"
)

// Defaults applied when the file omits a value.
const (
	DefaultMode                  = "safe"
	DefaultAutonomyLevel         = 2
	DefaultMaxConcurrent         = 4
	DefaultTimeoutSeconds        = 120
	DefaultMaxBufferBytes        = 256 * 1024
	DefaultMaxSessions           = 3
	DefaultRetentionDays         = 7
	DefaultMaxPersistedProfiles  = 10
	DefaultSweepIntervalSeconds  = 300
	DefaultArtifactRetentionDays = 3
)

// Config is the full on-disk configuration.
type Config struct {
	Workspace   string            `yaml:"workspace"`
	DefaultMode string            `yaml:"default_mode"`
	Autonomy    AutonomyConfig    `yaml:"autonomy"`
	Permissions map[string]string `yaml:"permissions"`
	Background  BackgroundConfig  `yaml:"background"`
	Browser     BrowserConfig     `yaml:"browser"`
	Logging     LoggingConfig     `yaml:"logging"`
	Research    ResearchConfig    `yaml:"research"`
}

type AutonomyConfig struct {
	Level float64 `yaml:"level"`
}

type BackgroundConfig struct {
	MaxConcurrent         int   `yaml:"max_concurrent"`
	DefaultTimeoutSeconds int   `yaml:"default_timeout_seconds"`
	MaxBufferBytes        int64 `yaml:"max_buffer_bytes"`
}

type BrowserConfig struct {
	Enabled bool                `yaml:"enabled"`
	Runtime RuntimeConfig       `yaml:"runtime"`
	Policy  BrowserPolicyConfig `yaml:"policy"`
}

type RuntimeConfig struct {
	Kind                 string  `yaml:"kind"` // "playwright"
	WSEndpoint           string  `yaml:"ws_endpoint"`
	Headless             bool    `yaml:"headless"`
	MaxSessions          int     `yaml:"max_sessions"`
	ArtifactsDir         string  `yaml:"artifacts_dir"`
	ProfilesDir          string  `yaml:"profiles_dir"`
	ProfileRetentionDays int     `yaml:"profile_retention_days"`
	MaxPersistedProfiles int     `yaml:"max_persisted_profiles"`
	ProfileSweepSeconds  int     `yaml:"profile_sweep_seconds"`
	ArtifactRetentionDay int     `yaml:"artifact_retention_days"`
	ArtifactSweepSeconds int     `yaml:"artifact_sweep_seconds"`
	ActionsPerSecond     float64 `yaml:"actions_per_second"`
}

type BrowserPolicyConfig struct {
	AllowHosts   []string `yaml:"allow_hosts"`
	DenyHosts    []string `yaml:"deny_hosts"`
	GateNewHosts bool     `yaml:"gate_new_hosts"`
	DenyActions  []string `yaml:"deny_actions"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type ResearchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns a configuration with every knob at its default.
func Default() *Config {
	wd, _ := os.Getwd()
	return &Config{
		Workspace:   wd,
		DefaultMode: DefaultMode,
		Autonomy:    AutonomyConfig{Level: DefaultAutonomyLevel},
		Permissions: map[string]string{},
		Background: BackgroundConfig{
			MaxConcurrent:         DefaultMaxConcurrent,
			DefaultTimeoutSeconds: DefaultTimeoutSeconds,
			MaxBufferBytes:        DefaultMaxBufferBytes,
		},
		Browser: BrowserConfig{
			Enabled: false,
			Runtime: RuntimeConfig{
				Kind:                 "playwright",
				Headless:             true,
				MaxSessions:          DefaultMaxSessions,
				ProfileRetentionDays: DefaultRetentionDays,
				MaxPersistedProfiles: DefaultMaxPersistedProfiles,
				ProfileSweepSeconds:  DefaultSweepIntervalSeconds,
				ArtifactRetentionDay: DefaultArtifactRetentionDays,
				ArtifactSweepSeconds: DefaultSweepIntervalSeconds,
				ActionsPerSecond:     2,
			},
			Policy: BrowserPolicyConfig{GateNewHosts: true},
		},
		Logging: LoggingConfig{Dir: ".quill/logs", Level: "info"},
	}
}

// Load reads path and overlays it on defaults. A missing file yields the
// defaults. Warnings report suspicious but non-fatal values.
func Load(path string) (*Config, []string, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}
	warnings := cfg.normalize()
	return cfg, warnings, nil
}

// normalize clamps out-of-range values back to defaults and collects
// warnings for values that will silently fall through at call time.
func (c *Config) normalize() []string {
	var warnings []string

	if _, ok := permission.ParseMode(c.DefaultMode); !ok {
		warnings = append(warnings, fmt.Sprintf("unknown default_mode %q: tools without overrides will fall through to ask", c.DefaultMode))
	}
	for tool, raw := range c.Permissions {
		if _, ok := permission.ParseDecision(raw); !ok {
			warnings = append(warnings, fmt.Sprintf("permissions[%s]=%q is not allow/ask/deny and will be ignored", tool, raw))
		}
	}
	if c.Background.MaxConcurrent <= 0 {
		c.Background.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Background.DefaultTimeoutSeconds <= 0 {
		c.Background.DefaultTimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Background.MaxBufferBytes <= 0 {
		c.Background.MaxBufferBytes = DefaultMaxBufferBytes
	}
	if c.Browser.Runtime.MaxSessions <= 0 {
		c.Browser.Runtime.MaxSessions = DefaultMaxSessions
	}
	if c.Browser.Runtime.ActionsPerSecond <= 0 {
		c.Browser.Runtime.ActionsPerSecond = 2
	}
	return warnings
}

// PermissionSettings projects the config onto the resolver's view.
func (c *Config) PermissionSettings() permission.Settings {
	mode, _ := permission.ParseMode(c.DefaultMode)
	return permission.Settings{
		Mode:          mode,
		AutonomyLevel: c.Autonomy.Level,
		Overrides:     c.Permissions,
	}
}

// BackgroundTimeout returns the default process timeout as a duration.
func (c *Config) BackgroundTimeout() time.Duration {
	return time.Duration(c.Background.DefaultTimeoutSeconds) * time.Second
}
