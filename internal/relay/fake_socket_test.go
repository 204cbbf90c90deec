package relay

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	messageType int
	data        []byte
}

// fakeSocket records writes instead of putting them on the wire.
type fakeSocket struct {
	addr net.Addr

	mu        sync.Mutex
	frames    []frame
	controls  []frame
	closed    bool
	writeErr  error
	deadlines int
}

func newFakeSocket(port int) *fakeSocket {
	return &fakeSocket{addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	return 0, nil, io.EOF
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.closed {
		return websocket.ErrCloseSent
	}
	s.frames = append(s.frames, frame{messageType, append([]byte(nil), data...)})
	return nil
}

func (s *fakeSocket) WriteControl(messageType int, data []byte, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.controls = append(s.controls, frame{messageType, append([]byte(nil), data...)})
	return nil
}

func (s *fakeSocket) SetWriteDeadline(time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines++
	return nil
}

func (s *fakeSocket) RemoteAddr() net.Addr { return s.addr }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSocket) written() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame(nil), s.frames...)
}

func (s *fakeSocket) controlFrames() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frame(nil), s.controls...)
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
