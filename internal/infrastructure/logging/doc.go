// Package logging provides structured logging for the touch node.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across every worker.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("publish worker started", "topic", topic)
//	logger.Error("subscribe failed", "error", err)
//
// Never log MQTT passwords or the InfluxDB token.
package logging
