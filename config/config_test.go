package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brettbedarf/fileguard/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestNewConfig_WithNilOverride tests that NewConfig creates a config with all default values
// when no override is provided.
func TestNewConfig_WithNilOverride(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(nil)

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values when no config provided")
}

func TestNewConfig_WithAllOverride(t *testing.T) {
	t.Parallel()

	override := createOverride()
	cfg := NewConfig(override)

	expCfg := &Config{
		LogLvl:         util.TraceLevel,
		SweepInterval:  2 * time.Second,
		PendingTimeout: 1500 * time.Millisecond,
		FoldCase:       !DefaultFoldCase,
		AutoSweep:      !DefaultAutoSweep,
	}
	require.NotNil(t, cfg)
	assert.Equal(t, expCfg, cfg, "must override all provided fields")
}

func TestConfig_Merge_LogLvlConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verboseValue  int
		expectedLevel util.LogLevel
	}{
		{"verbose_1_error", ErrorVerbose, util.ErrorLevel},
		{"verbose_2_warn", WarnVerbose, util.WarnLevel},
		{"verbose_3_info", InfoVerbose, util.InfoLevel},
		{"verbose_4_debug", DebugVerbose, util.DebugLevel},
		{"verbose_5_trace", TraceVerbose, util.TraceLevel},
		{"verbose_0_clamped_to_1", 0, util.ErrorLevel},
		{"verbose_100_clamped_to_5", 100, util.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override := &ConfigOverride{
				LogLvl: &tt.verboseValue,
			}

			cfg := NewConfig(override)

			assert.Equal(t, tt.expectedLevel, cfg.LogLvl,
				"CLI verbose %d should map to util.LogLevel %v", tt.verboseValue, tt.expectedLevel)
		})
	}
}

func TestConfig_Merge_NilOverrideVals(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{})

	require.NotNil(t, cfg)
	assert.Equal(t, createDefaultCfg(), cfg, "must use default values for nil override fields")
}

func TestConfig_Merge_PartialOverride(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		PendingTimeout: util.Pointer(60.0),
	}
	cfg := NewConfig(override)

	expCfg := createDefaultCfg()
	expCfg.PendingTimeout = time.Minute

	assert.Equal(t, expCfg, cfg, "must override all provided fields and leave rest default")
}

func TestConfig_Merge_IgnoresNonPositiveDurations(t *testing.T) {
	t.Parallel()

	override := &ConfigOverride{
		SweepInterval:  util.Pointer(0.0),
		PendingTimeout: util.Pointer(-5.0),
	}
	cfg := NewConfig(override)

	assert.Equal(t, DefaultSweepInterval, cfg.SweepInterval)
	assert.Equal(t, DefaultPendingTimeout, cfg.PendingTimeout)
}

func TestConfig_Merge_IgnoresSubNanosecondDurations(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(&ConfigOverride{
		SweepInterval:  util.Pointer(1e-10),
		PendingTimeout: util.Pointer(1e-12),
	})

	assert.Equal(t, DefaultSweepInterval, cfg.SweepInterval, "truncates to zero")
	assert.Equal(t, DefaultPendingTimeout, cfg.PendingTimeout)

	cfg = NewConfig(&ConfigOverride{SweepInterval: util.Pointer(0.5)})
	assert.Equal(t, 500*time.Millisecond, cfg.SweepInterval)
}

func TestLoadConfigOverrideFile_Valid(t *testing.T) {
	t.Parallel()

	type tc struct {
		ext   string
		build func() (*ConfigOverride, []byte)
	}

	cases := []tc{
		{
			ext: ".yaml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".yml",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := yaml.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
		{
			ext: ".json",
			build: func() (*ConfigOverride, []byte) {
				o := createOverride()
				b, err := json.Marshal(o)
				require.NoError(t, err)
				return o, b
			},
		},
	}

	for _, c := range cases {
		name := "valid" + c.ext
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			override, data := c.build()
			dir := t.TempDir()
			path := filepath.Join(dir, "override"+c.ext)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			loaded, err := LoadConfigOverrideFile(path)

			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, *override, *loaded)
		})
	}
}

func TestLoadConfigOverrideFile_HandWrittenYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fileguard.yaml")
	data := []byte("sweep_interval: 10\npending_timeout: 120\nfold_case: false\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.PendingTimeout)
	assert.False(t, cfg.FoldCase)
	assert.Equal(t, DefaultAutoSweep, cfg.AutoSweep)
}

// TestLoadConfigOverrideFile_NonExistentFile tests error handling
// when trying to load a file that doesn't exist.
func TestLoadConfigOverrideFile_NonExistentFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "does_not_exist.yaml")

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not exist error, got %v", err)
}

func TestLoadConfigOverrideFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.txt")
	require.NoError(t, os.WriteFile(path, []byte("sweep_interval: 1"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config file extension")
}

func TestLoadConfigOverrideFile_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfigOverrideFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config file")
}

// TestNewConfigFromFile_FileError tests that file loading errors
// are properly propagated by the convenience function.
func TestNewConfigFromFile_FileError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.json")

	_, err := NewConfigFromFile(path)
	require.Error(t, err)
}

func createDefaultCfg() *Config {
	return &Config{
		LogLvl:         DefaultLogLvl,
		SweepInterval:  DefaultSweepInterval,
		PendingTimeout: DefaultPendingTimeout,
		FoldCase:       DefaultFoldCase,
		AutoSweep:      DefaultAutoSweep,
	}
}

// createOverride makes a ConfigOverride with all non-default values
func createOverride() *ConfigOverride {
	return &ConfigOverride{
		LogLvl:         util.Pointer(TraceVerbose),
		SweepInterval:  util.Pointer(2.0),
		PendingTimeout: util.Pointer(1.5),
		FoldCase:       util.Pointer(!DefaultFoldCase),
		AutoSweep:      util.Pointer(!DefaultAutoSweep),
	}
}
