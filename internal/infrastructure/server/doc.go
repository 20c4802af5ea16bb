// Package server assembles the debug HTTP server around a shell.
//
// The router carries recovery, request ids, metrics, CORS and per-client
// rate limiting, and mounts the handlers of internal/http plus /metrics.
//
//	srv := server.NewServer(cfg.Server, sh, logger, metrics)
//	err := srv.Run(ctx)
package server
