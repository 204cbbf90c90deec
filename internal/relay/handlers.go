package relay

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/auth"
	"github.com/muurk/fanout/internal/logging"
)

// Handlers is the set of lifecycle callbacks the relay invokes.
//
// VerifyClient runs synchronously before any upgrade bytes are written and
// is the only callback that can refuse a client. The others are notified
// after the fact:
//   - OnConnection and OnOpen fire once, in that order, after the connection
//     has joined the registry.
//   - OnMessage fires once per inbound data frame. It owns the forwarding
//     policy; the relay itself never forwards anything.
//   - OnClose fires once, after the keepalive monitor is stopped and the
//     connection has left the registry.
//
// All callbacks for one connection run on that connection's goroutine, in
// order. Callbacks for different connections run concurrently.
type Handlers interface {
	VerifyClient(r *http.Request) bool
	OnConnection(reg *Registry, c *Conn, r *http.Request)
	OnOpen(reg *Registry, c *Conn)
	OnMessage(reg *Registry, c *Conn, messageType int, payload []byte)
	OnClose(reg *Registry, c *Conn, code int, reason string)
}

// HandlerFuncs adapts plain functions to Handlers. Nil fields are no-ops,
// except Verify: a nil Verify denies every client.
type HandlerFuncs struct {
	Verify     func(r *http.Request) bool
	Connection func(reg *Registry, c *Conn, r *http.Request)
	Open       func(reg *Registry, c *Conn)
	Message    func(reg *Registry, c *Conn, messageType int, payload []byte)
	Close      func(reg *Registry, c *Conn, code int, reason string)
}

func (h HandlerFuncs) VerifyClient(r *http.Request) bool {
	return h.Verify != nil && h.Verify(r)
}

func (h HandlerFuncs) OnConnection(reg *Registry, c *Conn, r *http.Request) {
	if h.Connection != nil {
		h.Connection(reg, c, r)
	}
}

func (h HandlerFuncs) OnOpen(reg *Registry, c *Conn) {
	if h.Open != nil {
		h.Open(reg, c)
	}
}

func (h HandlerFuncs) OnMessage(reg *Registry, c *Conn, messageType int, payload []byte) {
	if h.Message != nil {
		h.Message(reg, c, messageType, payload)
	}
}

func (h HandlerFuncs) OnClose(reg *Registry, c *Conn, code int, reason string) {
	if h.Close != nil {
		h.Close(reg, c, code, reason)
	}
}

// Verifier decides whether an upgrade request may proceed.
type Verifier interface {
	Verify(r *http.Request) bool
}

// BroadcastHandlers is the stock callback set: it admits clients carrying
// the shared token, logs every lifecycle event and relays each message to
// every open connection, the sender included.
type BroadcastHandlers struct {
	Verifier Verifier
}

// NewBroadcastHandlers returns the stock callbacks guarded by token.
func NewBroadcastHandlers(token string) *BroadcastHandlers {
	return &BroadcastHandlers{Verifier: auth.NewTokenVerifier(token)}
}

func (h *BroadcastHandlers) VerifyClient(r *http.Request) bool {
	logging.Info("Received upgrade request",
		zap.String("client_ip", auth.ClientIP(r)),
		zap.String("path", r.URL.Path),
	)
	return h.Verifier != nil && h.Verifier.Verify(r)
}

func (h *BroadcastHandlers) OnConnection(reg *Registry, c *Conn, r *http.Request) {
	logging.Info("Received a connection",
		zap.String("remote_addr", c.RemoteAddr()),
		zap.String("conn_id", c.ID()),
		zap.String("client_ip", auth.ClientIP(r)),
		zap.String("user_agent", r.UserAgent()),
		zap.Int("connections", reg.Len()),
	)
}

func (h *BroadcastHandlers) OnOpen(reg *Registry, c *Conn) {
	logging.LogConnection(c.RemoteAddr(), c.ID(), "opened")
}

func (h *BroadcastHandlers) OnMessage(reg *Registry, c *Conn, messageType int, payload []byte) {
	logging.LogWebSocketMessage(c.RemoteAddr(), c.ID(), "received", messageType, payload)

	res := Broadcast(reg, messageType, payload)
	logging.Debug("Broadcast complete",
		zap.String("conn_id", c.ID()),
		zap.Int("attempted", res.Attempted),
		zap.Int("failed", res.Failed),
	)
}

func (h *BroadcastHandlers) OnClose(reg *Registry, c *Conn, code int, reason string) {
	logging.Info("Closing a connection",
		zap.String("remote_addr", c.RemoteAddr()),
		zap.String("conn_id", c.ID()),
		zap.Int("code", code),
		zap.String("reason", reason),
		zap.Bool("normal", code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway),
		zap.Int("connections", reg.Len()),
	)
}
