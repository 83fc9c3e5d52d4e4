// Package log provides structured protocol capture for the lamp agent.
//
// This package defines the Logger interface and Event types for capturing
// heartbeat datagrams, dispatched commands, and lifecycle changes. It is
// separate from operational logging (slog): protocol capture provides a
// complete machine-readable trace for debugging a unit in the field.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/lampagent/agent.llog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Transport: heartbeat datagrams in and out (DatagramEvent)
//   - Control: parsed commands and their effect (CommandEvent)
//   - State changes of the session, agent, and flicker set (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Capture files use CBOR encoding with the .llog extension. The lamp-log
// CLI tool provides viewing, filtering, and export.
package log
