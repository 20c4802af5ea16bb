package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.False(t, cfg.Server.Enabled)
	assert.Empty(t, cfg.Server.Origins)
	assert.Equal(t, 50, cfg.Server.RateLimit)
	assert.Equal(t, 100, cfg.Server.Burst)

	// Window config
	assert.Equal(t, "KUI Window", cfg.Window.Title)
	assert.Equal(t, 900, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)

	// Bridge config
	assert.Equal(t, "kui://app", cfg.Bridge.Origin)
	assert.Zero(t, cfg.Bridge.UpgradeTimeout)
	assert.Zero(t, cfg.Bridge.MaxInFlight)

	// Page config
	assert.Equal(t, 5*time.Second, cfg.Page.ScriptTimeout)
	assert.True(t, cfg.Page.EnableConsole)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	// Should match defaults when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"**"}, cfg.Assets.Include)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                "9000",
		"HOST":                "0.0.0.0",
		"KUI_SERVE":           "true",
		"KUI_CORS_ORIGINS":    "http://devtools.local,kui://demo",
		"KUI_RATE_LIMIT":      "0",
		"KUI_TITLE":           "Demo",
		"KUI_WIDTH":           "1024",
		"KUI_HEIGHT":          "768",
		"KUI_ASSETS_DIR":      "/srv/assets",
		"KUI_ASSETS_INCLUDE":  "img/**,css/*.css",
		"KUI_REMOTE":          "true",
		"KUI_ORIGIN":          "kui://demo",
		"KUI_UPGRADE_TIMEOUT": "3s",
		"KUI_MAX_INFLIGHT":    "8",
		"KUI_SCRIPT_TIMEOUT":  "250ms",
		"KUI_CONSOLE":         "false",
		"LOG_LEVEL":           "debug",
		"LOG_DEV":             "true",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, []string{"http://devtools.local", "kui://demo"}, cfg.Server.Origins)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Equal(t, 100, cfg.Server.Burst)

	assert.Equal(t, "Demo", cfg.Window.Title)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 768, cfg.Window.Height)

	assert.Equal(t, "/srv/assets", cfg.Assets.Root)
	assert.Equal(t, []string{"img/**", "css/*.css"}, cfg.Assets.Include)
	assert.True(t, cfg.Assets.Remote)

	assert.Equal(t, "kui://demo", cfg.Bridge.Origin)
	assert.Equal(t, 3*time.Second, cfg.Bridge.UpgradeTimeout)
	assert.Equal(t, 8, cfg.Bridge.MaxInFlight)

	assert.Equal(t, 250*time.Millisecond, cfg.Page.ScriptTimeout)
	assert.False(t, cfg.Page.EnableConsole)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "kui://app", cfg.Bridge.Origin)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad width", key: "KUI_WIDTH", value: "wide"},
		{name: "bad timeout", key: "KUI_UPGRADE_TIMEOUT", value: "soon"},
		{name: "bad bool", key: "LOG_DEV", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(tt.key)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing
			cfg := LoadOrDefault()
			assert.Equal(t, Default().Window.Width, cfg.Window.Width)
		})
	}
}
