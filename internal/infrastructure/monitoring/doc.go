/*
Package monitoring provides Prometheus metrics for the panel host.

# Overview

Tracks HTTP requests, panel lifecycle events (shows, renders,
visibility), surface channel traffic, token persistence outcomes and
editor notifications. Each Metrics instance owns its registry, so
constructing one per test is safe.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to the Gin router
	router.Use(monitoring.Middleware(metrics))

	// Expose the scrape endpoint
	router.GET("/metrics", metrics.Handler())

	// Record domain events
	metrics.RecordShow("show", "ok")
	metrics.SetPanelVisible(true)
	metrics.RecordChannelMessage("in", "tokens")
*/
package monitoring
