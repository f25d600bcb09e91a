package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		l, err := New(ProductionConfig())
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("debug console", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Level = "debug"
		l, err := New(cfg)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sync.log")
		cfg := ProductionConfig()
		cfg.Output = path
		l, err := New(cfg)
		require.NoError(t, err)

		l.Info("written to file")
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "written to file")
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		cfg := ProductionConfig()
		cfg.Output = filepath.Join(t.TempDir(), "missing-dir", "sync.log")
		_, err := New(cfg)
		assert.Error(t, err)
	})
}

func TestNew_ExtraCoreRespectsLevel(t *testing.T) {
	extra, recorded := observer.New(zapcore.DebugLevel)

	cfg := ProductionConfig()
	cfg.Output = "stderr"
	l, err := New(cfg, extra)
	require.NoError(t, err)

	l.Debug("dropped")
	l.Info("kept", zap.String("entity", "product"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "product", entries[0].ContextMap()["entity"])
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
