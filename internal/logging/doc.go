// Package logging provides structured logging for the fanout relay and chat client.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the relay: connection lifecycle events,
// HTTP requests that never become WebSockets, and relayed messages.
//
// # Log Levels
//
//   - Debug: HTTP request details, ping probes, per-recipient send failures
//   - Info: Connection events, admissions and denials, relayed messages
//   - Warn: Non-fatal issues (upgrade failures, shutdown timeouts)
//   - Error: Startup failures, listener errors
//
// # Structured Logging
//
//	logging.Info("Connection admitted",
//	    zap.String("remote_addr", "192.168.1.100:52144"),
//	    zap.String("conn_id", "0b3f..."),
//	)
//
// Connection events:
//
//	logging.LogConnection(remoteAddr, connID, "admitted")
//	logging.LogConnection(remoteAddr, connID, "closed")
//
// Message logging:
//
//	logging.LogWebSocketMessage(remoteAddr, connID, "received", msgType, payload)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to FANOUT_LOG_LEVEL; when that is empty too the
// logger is a no-op. The chat client relies on this to keep the terminal clean.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has returned.
package logging
