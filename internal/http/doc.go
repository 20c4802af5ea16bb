// Package http provides the handlers of the debug HTTP server.
//
// Endpoints:
//   - Health: / and /health
//   - Page: GET /page renders the current, upgraded document
//   - Blobs: GET /blob/:id serves a derived resource with its media type,
//     DELETE /blob/:id releases it
//   - Bridge: POST /native/:name calls a binding through the kui surface
//   - Script: POST /eval runs script in the page, POST /settle waits for
//     pending upgrades
//
// Bridge errors map onto status codes: binding_not_found is 404,
// call_failed and malformed_reply are 502.
//
// Example Usage:
//
//	handlers := http.NewHandlers(sh, metrics, logger)
//	router.GET("/page", handlers.Page)
//	router.POST("/native/:name", handlers.Native)
package http
