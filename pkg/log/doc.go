// Package log provides structured serial-traffic logging.
//
// This package defines the Logger interface and Event types for capturing
// every command/answer exchange with a Tiger controller. It is separate from
// operational logging (slog) - traffic capture provides a complete
// machine-readable trace for debugging misbehaving firmware and for
// replaying sessions offline.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/tiger/session.tlog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files use CBOR encoding with .tlog extension. The tiger-log CLI tool
// provides viewing and filtering.
package log
