// Package logging provides structured logging for the Pit Boss client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the library and the CLI. It provides both general
// logging functions and specialized functions for wire-level logging.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (RPC frames, hex dumps, dropped messages)
//   - Info: Normal operations (connections, reconnects, state changes)
//   - Warn: Non-fatal issues (link drops, retries, queue overflow)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Silent by Default
//
// The library never logs unless logging is initialized. CLI commands call
// InitializeFromEnv, which reads PITBOSS_LOG_LEVEL and stays silent when it
// is unset. Library consumers that want output call Initialize explicitly:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Connected to grill",
//	    zap.String("transport", "ble"),
//	    zap.String("address", "A4:CF:12:9B:1E:30"),
//	)
//
// # Wire Logging
//
// RPC frames and raw buffers have dedicated helpers:
//
//	logging.LogFrame("wss", "send", payload)
//	logging.LogRawBytes("rx_ctl notification", data)
//
// Both truncate their output so a large frame cannot flood the log.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
