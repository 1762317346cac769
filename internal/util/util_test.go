package util

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointer(t *testing.T) {
	t.Parallel()

	p := Pointer(42)
	require.NotNil(t, p)
	assert.Equal(t, 42, *p)
}

func TestLevelFromVerbosity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		verbose  int
		expected LogLevel
	}{
		{"verbose_1_error", 1, ErrorLevel},
		{"verbose_2_warn", 2, WarnLevel},
		{"verbose_3_info", 3, InfoLevel},
		{"verbose_4_debug", 4, DebugLevel},
		{"verbose_5_trace", 5, TraceLevel},
		{"verbose_0_clamped_to_1", 0, ErrorLevel},
		{"verbose_100_clamped_to_5", 100, TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, LevelFromVerbosity(tt.verbose))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("blank", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", NormalizePath("", true))
		assert.Equal(t, "", NormalizePath("  \t", true))
	})

	t.Run("cleans", func(t *testing.T) {
		t.Parallel()
		raw := dir + "/sub/../a.png"
		assert.Equal(t, filepath.Join(dir, "a.png"), NormalizePath(raw, false))
	})

	t.Run("keeps whitespace in names", func(t *testing.T) {
		t.Parallel()
		plain := NormalizePath(filepath.Join(dir, "a.png"), true)
		assert.NotEqual(t, plain, NormalizePath(filepath.Join(dir, "a.png "), true))
		assert.NotEqual(t, plain, NormalizePath(" "+filepath.Join(dir, "a.png"), true))
	})

	t.Run("relative made absolute", func(t *testing.T) {
		t.Parallel()
		got := NormalizePath("a.png", false)
		assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
	})

	t.Run("fold case", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t,
			NormalizePath("/tmp/Photos/A.PNG", true),
			NormalizePath("/tmp/photos/a.png", true))
		assert.NotEqual(t,
			NormalizePath("/tmp/Photos/A.PNG", false),
			NormalizePath("/tmp/photos/a.png", false))
	})
}

func TestInitializeLogger_ComponentLogger(t *testing.T) {
	// mutates the global logger
	var buf bytes.Buffer
	InitializeLogger(&buf, WarnLevel)
	t.Cleanup(func() { InitializeLogger(&bytes.Buffer{}, InfoLevel) })

	logger := GetLogger("AccessManager")
	logger.Info().Msg("below level")
	logger.Warn().Str("path", "/a.png").Msg("above level")

	out := buf.String()
	assert.NotContains(t, out, "below level")
	assert.Contains(t, out, "above level")
	assert.Contains(t, out, "AccessManager")
	assert.Contains(t, out, "/a.png")
}
