package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewFromLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		dev   bool
		want  zapcore.Level
	}{
		{name: "production default", level: "", dev: false, want: zapcore.InfoLevel},
		{name: "development default", level: "", dev: true, want: zapcore.DebugLevel},
		{name: "explicit warn", level: "warn", dev: false, want: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewFromLevel(tt.level, tt.dev)
			require.NotNil(t, logger.Logger)
			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}

	// Bad levels fall back to a logger that discards everything
	assert.False(t, NewFromLevel("loud", false).Core().Enabled(zapcore.ErrorLevel))
}

func TestProductionWritesJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "kui.log")
	logger, err := New(Config{Level: "info", OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Component("shell").Info("Page loaded")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Page loaded"`)
	assert.Contains(t, string(data), `"logger":"shell"`)
	assert.Contains(t, string(data), `"timestamp":`)
}

func TestComponentOfNilLogger(t *testing.T) {
	var nilLogger *Logger
	assert.NotNil(t, nilLogger.Component("bridge"))
	assert.NotNil(t, NewNop().Component("upgrade"))
}
