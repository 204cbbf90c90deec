package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/auth"
	"github.com/muurk/fanout/internal/config"
	"github.com/muurk/fanout/internal/logging"
	"github.com/muurk/fanout/internal/metrics"
)

// Server is the relay: an HTTP listener that answers plain requests with
// 426, gates upgrade requests through Handlers.VerifyClient, and runs the
// lifecycle of every admitted connection.
type Server struct {
	config   *config.Config
	handlers Handlers
	registry *Registry
	upgrader websocket.Upgrader
	clock    Clock
	metrics  *metrics.Metrics

	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	wg       sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces the clock that drives keepalive pings.
func WithClock(clock Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRegistry makes the server admit connections into reg.
func WithRegistry(reg *Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// New creates a relay Server. The configuration is not copied; it must not
// change after this call.
func New(cfg *config.Config, handlers Handlers, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("relay: nil config")
	}
	if handlers == nil {
		return nil, errors.New("relay: nil handlers")
	}
	if cfg.PingInterval <= 0 {
		return nil, fmt.Errorf("relay: invalid ping interval %s", cfg.PingInterval)
	}

	s := &Server{
		config:   cfg,
		handlers: handlers,
		registry: NewRegistry(),
		clock:    SystemClock{},
		upgrader: websocket.Upgrader{
			// Origin is not checked; VerifyClient is the admission control.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logging.GetLogger()),
	}

	return s, nil
}

// Registry returns the live connection set.
func (s *Server) Registry() *Registry {
	return s.registry
}

// ServeHTTP implements http.Handler. Plain requests get 426; upgrade
// requests are verified and then upgraded or dropped.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isUpgradeRequest(r) {
		s.metrics.PlainRequest()
		writeUpgradeRequired(w, r)
		return
	}

	if !s.handlers.VerifyClient(r) {
		s.metrics.Handshake(metrics.ResultDenied)
		logging.Info("Upgrade denied, dropping connection",
			zap.String("client_ip", auth.ClientIP(r)),
			zap.String("remote_addr", r.RemoteAddr),
		)
		terminate(w, r)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		s.metrics.Handshake(metrics.ResultFailed)
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	s.metrics.Handshake(metrics.ResultAdmitted)

	if s.config.MaxMessageSize > 0 {
		ws.SetReadLimit(s.config.MaxMessageSize)
	}

	c := newConn(ws, s.config.WriteTimeout, s.metrics)
	if !s.register(c) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.config.WriteTimeout))
		_ = ws.Close()
		return
	}
	defer s.wg.Done()

	s.serveConn(c, r)
}

// register adds c to the registry unless shutdown has begun. The closing
// check and the insert share one critical section, so Shutdown either sees
// c in the registry or register refuses it.
func (s *Server) register(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	s.registry.Add(c)
	return true
}

// serveConn runs one registered connection through to teardown. Every
// callback for the connection runs here, in order.
func (s *Server) serveConn(c *Conn, r *http.Request) {
	s.admit(c)
	s.handlers.OnConnection(s.registry, c, r)
	s.handlers.OnOpen(s.registry, c)

	code, reason := s.readLoop(c)

	s.teardown(c, code, reason)
}

// admit starts the keepalive monitor of a registered connection.
func (s *Server) admit(c *Conn) {
	s.metrics.ConnectionOpened()
	c.monitor = StartMonitor(s.clock, s.config.PingInterval, c.Ping, func(err error) {
		logging.Debug("Keepalive ping failed",
			zap.String("remote_addr", c.RemoteAddr()),
			zap.String("conn_id", c.ID()),
			zap.Error(err),
		)
	})
	logging.LogConnection(c.RemoteAddr(), c.ID(), "admitted")
}

// readLoop dispatches inbound data frames until the connection fails or
// closes, and returns the close code and reason.
func (s *Server) readLoop(c *Conn) (int, string) {
	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			code, reason := closeStatus(err)
			if code == websocket.CloseAbnormalClosure {
				logging.Debug("Connection read failed",
					zap.Error(c.wrap("read", err)),
				)
			}
			return code, reason
		}

		s.metrics.MessageReceived(frameTypeName(messageType), len(payload))
		s.handlers.OnMessage(s.registry, c, messageType, payload)
	}
}

// teardown cancels the monitor and removes c from the registry before
// OnClose runs, so the callback already sees the connection gone.
func (s *Server) teardown(c *Conn, code int, reason string) {
	if localCode, localReason, ok := c.localClose(); ok {
		code, reason = localCode, localReason
	}

	c.monitor.Stop()
	if s.registry.Remove(c) {
		s.metrics.ConnectionClosed(time.Since(c.ConnectedAt()))
	}
	c.release()
	logging.LogConnection(c.RemoteAddr(), c.ID(), "closed")

	s.handlers.OnClose(s.registry, c, code, reason)
}

// closeStatus extracts the peer's close code and reason. Anything other than
// a close frame (reset, EOF, read limit) is reported as 1006 with an empty
// reason. gorilla synthesizes a 1006 CloseError carrying the read error text
// when the peer vanishes; a real close frame can never carry 1006.
func closeStatus(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, ""
}

func frameTypeName(messageType int) string {
	switch messageType {
	case websocket.TextMessage:
		return "text"
	case websocket.BinaryMessage:
		return "binary"
	default:
		return "other"
	}
}

// Listen binds the configured address. A bind failure is returned as is;
// the caller treats it as fatal.
func (s *Server) Listen() error {
	addr := s.config.Addr()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.config.TLSEnabled() {
		tlsConfig, err := NewTLSConfig(s.config.CertPath, s.config.KeyPath)
		if err != nil {
			_ = ln.Close()
			return err
		}
		ln = tls.NewListener(ln, tlsConfig)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logging.Info("Listening HTTP",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", s.config.TLSEnabled()),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is canceled, then shuts down within
// the configured shutdown timeout. Listen must have been called. It returns
// nil after a shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("relay: Serve called before Listen")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ListenAndServe binds and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Shutdown stops accepting connections, sends every open connection a
// going-away close frame and waits for their teardown to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down relay...", zap.Int("connections", s.registry.Len()))

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("Error closing listener", zap.Error(err))
	}

	s.registry.ForEach(func(c *Conn) {
		if err := c.Close(websocket.CloseGoingAway, "server shutting down"); err != nil {
			logging.Debug("Error closing connection", zap.Error(err))
		}
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
		return nil
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
}
