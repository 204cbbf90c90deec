package relay

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func registryOf(t *testing.T, n int) (*Registry, []*Conn, []*fakeSocket) {
	t.Helper()
	reg := NewRegistry()
	conns := make([]*Conn, n)
	socks := make([]*fakeSocket, n)
	for i := 0; i < n; i++ {
		socks[i] = newFakeSocket(40000 + i)
		conns[i] = newConn(socks[i], time.Second, nil)
		reg.Add(conns[i])
	}
	return reg, conns, socks
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 32} {
		reg, _, socks := registryOf(t, n)

		res := Broadcast(reg, websocket.TextMessage, []byte("hello"))

		if res.Attempted != n || res.Failed != 0 {
			t.Errorf("n=%d: Broadcast() = %+v, want %d attempted, 0 failed", n, res, n)
		}
		for i, s := range socks {
			frames := s.written()
			if len(frames) != 1 {
				t.Fatalf("n=%d: socket %d got %d frames, want exactly 1", n, i, len(frames))
			}
			if frames[0].messageType != websocket.TextMessage || string(frames[0].data) != "hello" {
				t.Errorf("n=%d: socket %d got %+v", n, i, frames[0])
			}
		}
	}
}

func TestBroadcastPreservesFrame(t *testing.T) {
	reg, _, socks := registryOf(t, 3)
	payload := []byte{0x00, 0x01, 0xfe, 0xff}

	Broadcast(reg, websocket.BinaryMessage, payload)

	for i, s := range socks {
		f := s.written()[0]
		if f.messageType != websocket.BinaryMessage || !bytes.Equal(f.data, payload) {
			t.Errorf("socket %d got type %d data %x, want binary %x", i, f.messageType, f.data, payload)
		}
	}
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	reg, _, socks := registryOf(t, 4)
	socks[1].writeErr = errors.New("connection reset by peer")

	res := Broadcast(reg, websocket.TextMessage, []byte("hi"))

	if res.Attempted != 4 || res.Failed != 1 {
		t.Errorf("Broadcast() = %+v, want 4 attempted, 1 failed", res)
	}
	for i, s := range socks {
		if i == 1 {
			continue
		}
		if len(s.written()) != 1 {
			t.Errorf("socket %d missed the broadcast", i)
		}
	}
}

func TestMulticastSkipsClosedConnections(t *testing.T) {
	_, conns, socks := registryOf(t, 2)
	conns[0].release()

	res := Multicast(conns, websocket.TextMessage, []byte("x"))

	if res.Attempted != 2 || res.Failed != 1 {
		t.Errorf("Multicast() = %+v, want 2 attempted, 1 failed", res)
	}
	if len(socks[0].written()) != 0 {
		t.Error("closed connection was written to")
	}
}

func TestExcept(t *testing.T) {
	reg, conns, _ := registryOf(t, 3)

	others := Except(reg, conns[0])

	if len(others) != 2 {
		t.Fatalf("Except() returned %d connections, want 2", len(others))
	}
	for _, c := range others {
		if c == conns[0] {
			t.Error("Except() included the excluded connection")
		}
	}
}
