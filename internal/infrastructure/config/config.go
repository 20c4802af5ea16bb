package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Window  WindowConfig
	Assets  AssetsConfig
	Bridge  BridgeConfig
	Page    PageConfig
	Logging LogConfig
}

// ServerConfig holds debug HTTP server configuration.
type ServerConfig struct {
	Port    string `envconfig:"PORT" default:"8000"`
	Host    string `envconfig:"HOST" default:"127.0.0.1"`
	Enabled bool   `envconfig:"KUI_SERVE" default:"false"`
	// Origins admitted by CORS besides loopback pages
	Origins   []string `envconfig:"KUI_CORS_ORIGINS" default:""`
	RateLimit int      `envconfig:"KUI_RATE_LIMIT" default:"50"`
	Burst     int      `envconfig:"KUI_RATE_BURST" default:"100"`
}

// WindowConfig holds the shell window defaults.
type WindowConfig struct {
	Title  string `envconfig:"KUI_TITLE" default:"KUI Window"`
	Width  int    `envconfig:"KUI_WIDTH" default:"900"`
	Height int    `envconfig:"KUI_HEIGHT" default:"600"`
}

// AssetsConfig holds the host-side resource roots.
type AssetsConfig struct {
	Root     string   `envconfig:"KUI_ASSETS_DIR" default:"."`
	Include  []string `envconfig:"KUI_ASSETS_INCLUDE" default:"**"`
	FilesDir string   `envconfig:"KUI_FILES_DIR" default:""`
	Remote   bool     `envconfig:"KUI_REMOTE" default:"false"`
}

// BridgeConfig holds resolution pipeline settings.
type BridgeConfig struct {
	Origin         string        `envconfig:"KUI_ORIGIN" default:"kui://app"`
	UpgradeTimeout time.Duration `envconfig:"KUI_UPGRADE_TIMEOUT" default:"0s"`
	MaxInFlight    int           `envconfig:"KUI_MAX_INFLIGHT" default:"0"`
}

// PageConfig holds page script runtime settings.
type PageConfig struct {
	ScriptTimeout time.Duration `envconfig:"KUI_SCRIPT_TIMEOUT" default:"5s"`
	EnableConsole bool          `envconfig:"KUI_CONSOLE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8000",
			Host:      "127.0.0.1",
			Enabled:   false,
			RateLimit: 50,
			Burst:     100,
		},
		Window: WindowConfig{
			Title:  "KUI Window",
			Width:  900,
			Height: 600,
		},
		Assets: AssetsConfig{
			Root:    ".",
			Include: []string{"**"},
		},
		Bridge: BridgeConfig{
			Origin: "kui://app",
		},
		Page: PageConfig{
			ScriptTimeout: 5 * time.Second,
			EnableConsole: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
