package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/fanout/internal/metrics"
)

func TestConnSend(t *testing.T) {
	sock := newFakeSocket(1)
	m := metrics.New("test")
	c := newConn(sock, time.Second, m)

	if err := c.Send(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	frames := sock.written()
	if len(frames) != 1 || string(frames[0].data) != "hello" || frames[0].messageType != websocket.TextMessage {
		t.Errorf("written frames = %+v, want one text frame \"hello\"", frames)
	}
	if sock.deadlines != 1 {
		t.Errorf("write deadline set %d times, want 1", sock.deadlines)
	}
	if got := testutil.ToFloat64(m.Sends.WithLabelValues(metrics.StatusOK)); got != 1 {
		t.Errorf("ok sends = %v, want 1", got)
	}
}

func TestConnSendError(t *testing.T) {
	sock := newFakeSocket(1)
	sock.writeErr = errors.New("broken pipe")
	m := metrics.New("test")
	c := newConn(sock, time.Second, m)

	err := c.Send(websocket.TextMessage, []byte("x"))
	var connErr *ConnError
	if !errors.As(err, &connErr) {
		t.Fatalf("Send() error = %v, want *ConnError", err)
	}
	if connErr.Op != "send" || connErr.ConnID != c.ID() || connErr.RemoteAddr != "127.0.0.1:1" {
		t.Errorf("ConnError = %+v", connErr)
	}
	if !errors.Is(err, sock.writeErr) {
		t.Error("ConnError should unwrap to the socket error")
	}
	if got := testutil.ToFloat64(m.Sends.WithLabelValues(metrics.StatusError)); got != 1 {
		t.Errorf("failed sends = %v, want 1", got)
	}
}

func TestConnClose(t *testing.T) {
	sock := newFakeSocket(1)
	c := newConn(sock, time.Second, nil)

	if err := c.Close(websocket.CloseGoingAway, "bye"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.State() != StateClosed {
		t.Errorf("State() = %v, want closed", c.State())
	}
	if !sock.isClosed() {
		t.Error("socket should be closed")
	}

	controls := sock.controlFrames()
	if len(controls) != 1 || controls[0].messageType != websocket.CloseMessage {
		t.Fatalf("control frames = %+v, want one close frame", controls)
	}
	want := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
	if string(controls[0].data) != string(want) {
		t.Errorf("close payload = %q, want %q", controls[0].data, want)
	}

	code, reason, ok := c.localClose()
	if !ok || code != websocket.CloseGoingAway || reason != "bye" {
		t.Errorf("localClose() = %d, %q, %v", code, reason, ok)
	}

	// Second close writes nothing.
	if err := c.Close(websocket.CloseNormalClosure, ""); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if got := len(sock.controlFrames()); got != 1 {
		t.Errorf("control frames after second Close() = %d, want 1", got)
	}
}

func TestClosedConnRefusesWrites(t *testing.T) {
	sock := newFakeSocket(1)
	c := newConn(sock, time.Second, nil)
	c.release()

	if err := c.Send(websocket.TextMessage, []byte("late")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send() after release error = %v, want ErrConnClosed", err)
	}
	if err := c.Ping(); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Ping() after release error = %v, want ErrConnClosed", err)
	}
	if len(sock.written()) != 0 || len(sock.controlFrames()) != 0 {
		t.Error("closed connection wrote to its socket")
	}
	if _, _, ok := c.localClose(); ok {
		t.Error("release() should not record a local close code")
	}
}

func TestConnPing(t *testing.T) {
	sock := newFakeSocket(1)
	m := metrics.New("test")
	c := newConn(sock, 0, m)

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	controls := sock.controlFrames()
	if len(controls) != 1 || controls[0].messageType != websocket.PingMessage || len(controls[0].data) != 0 {
		t.Errorf("control frames = %+v, want one empty ping", controls)
	}
	if got := testutil.ToFloat64(m.Pings.WithLabelValues(metrics.StatusOK)); got != 1 {
		t.Errorf("ok pings = %v, want 1", got)
	}
	if !c.deadline().IsZero() {
		t.Error("zero write timeout should mean no deadline")
	}
}

func TestConnStateString(t *testing.T) {
	tests := []struct {
		state ConnState
		want  string
	}{
		{StateOpen, "open"},
		{StateClosed, "closed"},
		{ConnState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ConnState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
