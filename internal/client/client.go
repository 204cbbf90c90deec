// Package client connects to a fanout relay.
//
// The relay checks the shared token before the WebSocket handshake and
// resets the TCP connection when it does not match, so a rejected client
// sees a dropped connection rather than an HTTP error. Dial reports that
// case as ErrNoHandshake.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/logging"
)

const (
	// TokenParam is the query parameter carrying the shared token
	TokenParam = "t"

	// DefaultHandshakeTimeout bounds the opening handshake
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds each outgoing frame
	DefaultWriteTimeout = 10 * time.Second

	messageBuffer = 64
)

var (
	// ErrNoHandshake is returned when the relay closed the connection
	// without answering the upgrade; usually a wrong token.
	ErrNoHandshake = errors.New("relay dropped the connection during the handshake (check the token)")

	// ErrClosed is returned when sending on a closed client.
	ErrClosed = errors.New("client closed")
)

// Message is one frame received from the relay.
type Message struct {
	Type       int
	Data       []byte
	ReceivedAt time.Time
}

// Text reports whether the message is a text frame.
func (m Message) Text() bool { return m.Type == websocket.TextMessage }

// Options configures Dial.
type Options struct {
	Token              string
	UserAgent          string
	HandshakeTimeout   time.Duration
	WriteTimeout       time.Duration
	InsecureSkipVerify bool
}

// Client is a connected relay client. Received frames are delivered on
// Messages until the connection ends.
type Client struct {
	conn         *websocket.Conn
	url          string
	writeTimeout time.Duration

	messages chan Message
	done     chan struct{}
	stop     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closing   atomic.Bool

	errMu sync.Mutex
	err   error
}

// BuildURL turns a relay address into a WebSocket URL carrying token.
// http and https schemes map to ws and wss; a bare host:port gets ws.
func BuildURL(raw, token string) (string, error) {
	if raw == "" {
		return "", errors.New("relay URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		// Accept "host:port" without a scheme.
		u, err = url.Parse("ws://" + raw)
		if err != nil {
			return "", fmt.Errorf("invalid relay URL %q: %w", raw, err)
		}
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in relay URL", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("relay URL %q has no host", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	if token != "" {
		q := u.Query()
		q.Set(TokenParam, token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Dial connects to the relay at rawURL and starts reading.
func Dial(ctx context.Context, rawURL string, opts Options) (*Client, error) {
	target, err := BuildURL(rawURL, opts.Token)
	if err != nil {
		return nil, err
	}

	handshakeTimeout := opts.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	if opts.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for self-signed relays
	}

	header := http.Header{}
	if opts.UserAgent != "" {
		header.Set("User-Agent", opts.UserAgent)
	}

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake with %s failed: HTTP %d", redact(target), resp.StatusCode)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", redact(target), ctx.Err())
		}
		logging.Debug("Dial failed", zap.String("url", redact(target)), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoHandshake, err)
	}

	c := &Client{
		conn:         conn,
		url:          target,
		writeTimeout: writeTimeout,
		messages:     make(chan Message, messageBuffer),
		done:         make(chan struct{}),
		stop:         make(chan struct{}),
	}
	go c.readLoop()

	logging.Info("Connected to relay", zap.String("url", redact(target)))
	return c, nil
}

// URL returns the relay URL with the token redacted.
func (c *Client) URL() string { return redact(c.url) }

// Messages returns the channel of received frames. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan Message { return c.messages }

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended. A normal or going-away close, or
// one started by Close, yields nil.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.messages)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.errMu.Lock()
				c.err = err
				c.errMu.Unlock()
				logging.Debug("Relay connection ended", zap.Error(err))
			}
			return
		}
		select {
		case c.messages <- Message{Type: messageType, Data: data, ReceivedAt: time.Now()}:
		case <-c.stop:
			return
		}
	}
}

// Send writes one frame to the relay.
func (c *Client) Send(messageType int, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendText writes a text frame.
func (c *Client) SendText(text string) error {
	return c.Send(websocket.TextMessage, []byte(text))
}

// Close sends a normal close frame, waits briefly for the relay to answer
// and closes the socket. Frames still unread on Messages are dropped.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.stop)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		select {
		case <-c.done:
		case <-time.After(time.Second):
		}
		err = c.conn.Close()
	})
	return err
}

// redact hides the token in URLs that end up in logs or on screen.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has(TokenParam) {
		q.Set(TokenParam, "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
