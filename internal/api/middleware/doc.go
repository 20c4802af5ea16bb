// Package middleware provides the HTTP middleware of the debug server.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID propagation
//   - CORS: loopback origins plus an explicit allow list
//   - RateLimit: per-IP token bucket with idle eviction
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
