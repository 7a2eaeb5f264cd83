// Package logger builds the zap loggers used across the tracker.
//
// Every long-running component receives a *zap.Logger at construction time; nothing
// reaches for a global logger except the cobra entry points, which install the
// configured logger with zap.ReplaceGlobals.
//
// # Scoping
//
//   - WithRayID attaches the request ray_id to logs written by admin HTTP handlers.
//   - ForTracker attaches the core name and tracker name to logs written by a
//     reconciliation cycle, so interleaved output from concurrent trackers stays readable.
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json (default) or console
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	l := logger.ForTracker(log, "alfresco-0", "metadata")
//	l.Info("cycle finished", zap.Int("documents", n))
package logger
