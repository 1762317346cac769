package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/fileguard/internal/util"
	"gopkg.in/yaml.v3"
)

// CLI style verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel

	// DefaultSweepInterval is the minimum time between two pending-deletion sweeps
	DefaultSweepInterval = 30 * time.Second

	// DefaultPendingTimeout is how long a deferred deletion may wait on
	// outstanding grants before it is force-resolved
	DefaultPendingTimeout = 5 * time.Minute

	// DefaultFoldCase makes path keys case-insensitive
	DefaultFoldCase = true

	// DefaultAutoSweep runs the background sweeper while a manager is started
	DefaultAutoSweep = true
)

// Config contains runtime configuration values for the access manager.
type Config struct {
	LogLvl         util.LogLevel // Log level (Default info)
	SweepInterval  time.Duration // Minimum time between pending-deletion sweeps (Default 30s)
	PendingTimeout time.Duration // Max wait of a deferred deletion before forced expiry (Default 5m)
	FoldCase       bool          // Case-insensitive path keys (Default true)
	AutoSweep      bool          // Run the background sweeper on Start (Default true)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
// Durations are given in seconds.
type ConfigOverride struct {
	LogLvl         *int     `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"` // verbosity 1 (error) .. 5 (trace)
	SweepInterval  *float64 `yaml:"sweep_interval,omitempty" json:"sweep_interval,omitempty"`
	PendingTimeout *float64 `yaml:"pending_timeout,omitempty" json:"pending_timeout,omitempty"`
	FoldCase       *bool    `yaml:"fold_case,omitempty" json:"fold_case,omitempty"`
	AutoSweep      *bool    `yaml:"auto_sweep,omitempty" json:"auto_sweep,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLvl:         DefaultLogLvl,
		SweepInterval:  DefaultSweepInterval,
		PendingTimeout: DefaultPendingTimeout,
		FoldCase:       DefaultFoldCase,
		AutoSweep:      DefaultAutoSweep,
	}
}

// NewConfig returns the default config with override applied; override may be nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
// Non-positive durations are ignored.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if d, ok := seconds(override.SweepInterval); ok {
		c.SweepInterval = d
	}
	if d, ok := seconds(override.PendingTimeout); ok {
		c.PendingTimeout = d
	}
	if override.FoldCase != nil {
		c.FoldCase = *override.FoldCase
	}
	if override.AutoSweep != nil {
		c.AutoSweep = *override.AutoSweep
	}
}

// seconds converts an override value; false when unset or not a positive duration
func seconds(s *float64) (time.Duration, bool) {
	if s == nil {
		return 0, false
	}
	d := time.Duration(*s * float64(time.Second))
	return d, d > 0
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
