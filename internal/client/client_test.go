package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/fanout/internal/config"
	"github.com/muurk/fanout/internal/relay"
)

const testToken = "secret123"

func startRelay(t *testing.T) string {
	t.Helper()

	cfg := config.Default()
	cfg.Token = testToken
	srv, err := relay.New(cfg, relay.NewBroadcastHandlers(testToken))
	if err != nil {
		t.Fatalf("relay.New() error = %v", err)
	}

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return ts.URL
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.Messages():
		if !ok {
			t.Fatalf("connection ended: %v", c.Err())
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return Message{}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		token   string
		want    string
		wantErr bool
	}{
		{"ws", "ws://localhost:8000", testToken, "ws://localhost:8000/?t=secret123", false},
		{"http maps to ws", "http://localhost:8000/", testToken, "ws://localhost:8000/?t=secret123", false},
		{"https maps to wss", "https://relay.example.com/chat", testToken, "wss://relay.example.com/chat?t=secret123", false},
		{"bare host", "localhost:8000", testToken, "ws://localhost:8000/?t=secret123", false},
		{"escaped token", "ws://h:1", "a&b=c", "ws://h:1/?t=a%26b%3Dc", false},
		{"replaces token", "ws://h:1/?t=old", "new", "ws://h:1/?t=new", false},
		{"no token", "ws://h:1", "", "ws://h:1/", false},
		{"empty", "", testToken, "", true},
		{"bad scheme", "ftp://h:1", testToken, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.raw, tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	got := redact("ws://h:1/?t=secret123")
	if strings.Contains(got, testToken) {
		t.Errorf("redact() leaked the token: %q", got)
	}
	if got := redact("ws://h:1/"); got != "ws://h:1/" {
		t.Errorf("redact() changed a URL without a token: %q", got)
	}
}

func TestDialAndEcho(t *testing.T) {
	base := startRelay(t)

	c, err := Dial(context.Background(), base, Options{Token: testToken, UserAgent: "fanout-chat/test"})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if strings.Contains(c.URL(), testToken) {
		t.Error("URL() should redact the token")
	}

	if err := c.SendText("hello"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	msg := receive(t, c)
	if !msg.Text() || string(msg.Data) != "hello" {
		t.Errorf("received %+v, want text \"hello\"", msg)
	}

	if err := c.Send(websocket.BinaryMessage, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg := receive(t, c); msg.Text() || string(msg.Data) != "\x01\x02" {
		t.Errorf("received %+v, want the binary frame back", msg)
	}
}

func TestDialWrongToken(t *testing.T) {
	base := startRelay(t)

	_, err := Dial(context.Background(), base, Options{Token: "wrong"})
	if !errors.Is(err, ErrNoHandshake) {
		t.Errorf("Dial() error = %v, want ErrNoHandshake", err)
	}
}

func TestDialPlainHTTPServer(t *testing.T) {
	ts := httptest.NewServer(nil)
	defer ts.Close()

	_, err := Dial(context.Background(), ts.URL, Options{Token: testToken})
	if err == nil || errors.Is(err, ErrNoHandshake) {
		t.Errorf("Dial() error = %v, want an HTTP status error", err)
	}
}

func TestCloseEndsConnection(t *testing.T) {
	base := startRelay(t)

	c, err := Dial(context.Background(), base, Options{Token: testToken})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after Close()")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil after a normal close", c.Err())
	}
	if err := c.SendText("late"); !errors.Is(err, ErrClosed) {
		t.Errorf("SendText() after Close() error = %v, want ErrClosed", err)
	}
}

func TestCloseWithUnreadMessages(t *testing.T) {
	base := startRelay(t)

	c, err := Dial(context.Background(), base, Options{Token: testToken})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	// The relay echoes every frame; never reading fills the buffer.
	for i := 0; i < messageBuffer+4; i++ {
		if err := c.SendText("fill"); err != nil {
			t.Fatalf("SendText() error = %v", err)
		}
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(c.messages) < messageBuffer {
		if time.Now().After(deadline) {
			t.Fatalf("buffered %d messages, want %d", len(c.messages), messageBuffer)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() not closed after Close() with a full message buffer")
	}
}
