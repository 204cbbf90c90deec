package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrConnClosed is returned when writing to a connection that has
	// already left the Open state.
	ErrConnClosed = errors.New("connection closed")
)

// ConnError wraps an I/O failure on one connection with enough context to log it.
type ConnError struct {
	Op         string // "send", "ping", "read", "close"
	ConnID     string
	RemoteAddr string
	Err        error
}

// Error implements the error interface
func (e *ConnError) Error() string {
	return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.RemoteAddr, e.ConnID, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnError) Unwrap() error {
	return e.Err
}
