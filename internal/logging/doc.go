// Package logging provides structured logging using uber/zap.
//
// Two modes: production emits JSON for machine parsing, development
// emits colored console output. Callers attach context with zap fields:
//
//	logger := logging.NewDefault()
//	logger.Info("panel shown", zap.String("surface_id", id))
package logging
