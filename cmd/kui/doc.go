// Package main is the entry point for the kui shell.
//
// It indexes the host assets, initializes a shell with the kui bridge,
// optionally loads a page from disk and, when enabled, serves the debug
// HTTP API next to it.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Load a page against an asset directory
//	./kui -assets ./web -page ./web/index.html
//
//	# Expose the debug API with development logs
//	./kui -assets ./web -serve -port 8000 -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
