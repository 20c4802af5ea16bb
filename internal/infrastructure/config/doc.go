// Package config provides 12-factor configuration management for kui.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags in cmd/kui can override environment variables.
//
// Configuration Sections:
//   - Server: debug HTTP server settings (address, CORS origins, rate limit)
//   - Window: shell title and size
//   - Assets: asset root, include patterns, file binding root, remote fetch
//   - Bridge: derived resource origin, upgrade timeout, in-flight limit
//   - Page: script timeout, console capture
//   - Logging: Log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Serving %s on %s:%s\n", cfg.Assets.Root, cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, KUI_SERVE, KUI_CORS_ORIGINS, KUI_RATE_LIMIT, KUI_RATE_BURST
//   - KUI_TITLE, KUI_WIDTH, KUI_HEIGHT
//   - KUI_ASSETS_DIR, KUI_ASSETS_INCLUDE, KUI_FILES_DIR, KUI_REMOTE
//   - KUI_ORIGIN, KUI_UPGRADE_TIMEOUT, KUI_MAX_INFLIGHT
//   - KUI_SCRIPT_TIMEOUT, KUI_CONSOLE
//   - LOG_LEVEL, LOG_DEV
package config
