package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	SetNamedLevels([]NamedLevel{
		{Name: "stylus", Level: "debug"},
		{Name: "stylus*", Level: "info"},
		{Name: "stylus.client", Level: "warn"},
		{Name: "*", Level: "fatal"},
	})
	defer SetNamedLevels(nil)

	tests := []struct {
		name string
		want zapcore.Level
	}{
		{"stylus", zapcore.DebugLevel},
		{"stylus.app", zapcore.InfoLevel},
		{"stylus.client", zapcore.InfoLevel},
		{"random", zapcore.FatalLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			got := levelFor(tt.name)
			mu.Unlock()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelsFromStr(t *testing.T) {
	levels := LevelsFromStr("stylus.app=DEBUG; stylus.*=warn;bogus=nope;error")
	assert.Equal(t, []NamedLevel{
		{Name: "stylus.app", Level: "DEBUG"},
		{Name: "stylus.*", Level: "warn"},
		{Name: "*", Level: "error"},
	}, levels)
	assert.Empty(t, LevelsFromStr(""))
}

func TestNewNamedIsCached(t *testing.T) {
	a := NewNamed("test.cached", zap.String("k", "v"))
	b := NewNamed("test.cached")
	assert.Same(t, a.Logger, b.Logger)
	assert.Equal(t, "test.cached", b.Name())
}

func TestConfigBuild(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := Config{DefaultLevel: "loud"}.Build()
		require.Error(t, err)
	})
	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stylus.log")
		lg, err := Config{Production: true, Format: JSONOutput, Outputs: []string{path}}.Build()
		require.NoError(t, err)
		lg.Info("hello", zap.String("network", "local"))
		require.NoError(t, lg.Sync())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
		assert.Contains(t, string(data), `"network":"local"`)
	})
	t.Run("named level lowers root", func(t *testing.T) {
		lg, err := Config{Production: true, DefaultLevel: "warn", Levels: []NamedLevel{{Name: "x", Level: "debug"}}}.Build()
		require.NoError(t, err)
		assert.True(t, lg.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestApplyGlobalDefaultLevel(t *testing.T) {
	prev := *Default()
	defer func() {
		SetDefault(&prev)
		SetNamedLevels(nil)
	}()

	cfg := Config{
		Production:   true,
		DefaultLevel: "warn",
		Levels:       []NamedLevel{{Name: "stylus*", Level: "debug"}},
		Outputs:      []string{filepath.Join(t.TempDir(), "out.log")},
	}
	require.NoError(t, cfg.ApplyGlobal())

	other := NewNamed("game.systems")
	assert.False(t, other.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, other.Core().Enabled(zapcore.WarnLevel))

	stylus := NewNamed("stylus.test")
	assert.True(t, stylus.Core().Enabled(zapcore.DebugLevel))
}
