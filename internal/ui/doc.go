// Package ui provides the terminal front end of fanout-chat.
//
// ChatModel is a Bubble Tea program: a scrolling log of every message the
// relay broadcasts (the user's own lines arrive back through the relay like
// everyone else's) above a single input line. Printer renders the
// non-interactive output of the discover command and connection errors with
// Lipgloss.
//
// # Logging Integration
//
// This package expects logging to be controlled via the FANOUT_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, so log
// lines do not corrupt the TUI.
package ui
