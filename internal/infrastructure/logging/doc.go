// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so that stdout stays free for rendered pages
// printed by the kui command.
//
// Subsystems get a named child logger:
//
//	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	upgrades := logger.Component("upgrade")
//	upgrades.Error("Failed to resolve", zap.String("locator", loc), zap.Error(err))
package logging
