package relay

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/muurk/fanout/internal/metrics"
)

// ConnState is the lifecycle state of an admitted connection. Requests that
// are denied never get a Conn, so Pending and Terminated live only in the gate.
type ConnState int

const (
	StateOpen ConnState = iota
	StateClosed
)

// String returns a human-readable name for the state
func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// socket is the subset of *websocket.Conn the relay uses.
type socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// Conn is one admitted WebSocket connection. Identity is pointer equality;
// ID exists only to correlate log lines.
type Conn struct {
	id          string
	remoteAddr  string
	connectedAt time.Time

	ws           socket
	writeTimeout time.Duration
	metrics      *metrics.Metrics
	monitor      *Monitor

	// mu serializes data frames and guards state; a closed Conn never writes.
	mu    sync.Mutex
	state ConnState

	// Set when the server closed the connection itself.
	closeCode   int
	closeReason string
}

func newConn(ws socket, writeTimeout time.Duration, m *metrics.Metrics) *Conn {
	remote := ""
	if addr := ws.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &Conn{
		id:           uuid.NewString(),
		remoteAddr:   remote,
		connectedAt:  time.Now(),
		ws:           ws,
		writeTimeout: writeTimeout,
		metrics:      m,
		state:        StateOpen,
	}
}

// ID returns the connection's log identifier.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer address as seen by the socket.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

// ConnectedAt returns the admission time.
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send writes one data frame. It fails with ErrConnClosed once the
// connection has left the Open state, without touching the socket.
func (c *Conn) Send(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return ErrConnClosed
	}

	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(c.deadline()); err != nil {
			c.metrics.Send(err)
			return c.wrap("send", err)
		}
	}

	err := c.ws.WriteMessage(messageType, data)
	c.metrics.Send(err)
	if err != nil {
		return c.wrap("send", err)
	}
	return nil
}

// Ping writes an empty ping control frame. Control frames may be written
// concurrently with Send, so this does not take the write lock.
func (c *Conn) Ping() error {
	if c.State() != StateOpen {
		return ErrConnClosed
	}

	err := c.ws.WriteControl(websocket.PingMessage, nil, c.deadline())
	c.metrics.Ping(err)
	if err != nil {
		return c.wrap("ping", err)
	}
	return nil
}

// Close starts a server-initiated close: a close frame with code and reason
// is sent and the socket is closed. The read loop then observes the close
// and runs the normal teardown. Calling Close more than once is harmless.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return nil
	}
	c.state = StateClosed
	c.closeCode, c.closeReason = code, reason

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, c.deadline())

	if err := c.ws.Close(); err != nil {
		return c.wrap("close", err)
	}
	return nil
}

// release moves the connection to Closed and closes the socket without a
// close frame; the peer already went away or sent its own.
func (c *Conn) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	_ = c.ws.Close()
}

// localClose returns the code and reason passed to Close, if it was called.
func (c *Conn) localClose() (int, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason, c.closeCode != 0
}

// deadline returns the write deadline for the next frame; zero means none.
func (c *Conn) deadline() time.Time {
	if c.writeTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.writeTimeout)
}

func (c *Conn) wrap(op string, err error) error {
	return &ConnError{Op: op, ConnID: c.id, RemoteAddr: c.remoteAddr, Err: err}
}
