/*
Package monitoring provides metrics collection for the bridge.

# Overview

Prometheus metrics for host binding calls, resource resolution, placeholder
upgrades and the debug HTTP server. Each Metrics value owns a registry, so
shells created in tests never collide on registration.

# Usage

	metrics := monitoring.NewMetrics()

	// Time a binding call
	timer := monitoring.NewTimer(metrics, "__kui_resolve")
	// ... perform call ...
	timer.Stop(monitoring.StatusOK)

	// Expose on the debug server
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

A nil *Metrics is valid and records nothing.
*/
package monitoring
