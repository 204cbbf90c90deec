// Package metrics provides Prometheus instrumentation for the relay.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/logging"
)

// Handshake results
const (
	ResultAdmitted = "admitted"
	ResultDenied   = "denied"
	ResultFailed   = "failed"
)

// Send statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all Prometheus collectors for one relay instance. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections  prometheus.Gauge
	Handshakes         *prometheus.CounterVec
	ConnectionDuration prometheus.Histogram
	UpgradeRequired    prometheus.Counter

	MessagesReceived *prometheus.CounterVec
	MessageSize      prometheus.Histogram
	Sends            *prometheus.CounterVec
	Pings            *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fanout"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connections currently in the registry",
		}),
		Handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Upgrade attempts by result (admitted, denied, failed)",
		}, []string{"result"}),
		ConnectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of admitted connections in seconds",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 3600, 14400, 86400},
		}),
		UpgradeRequired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upgrade_required_total",
			Help:      "Plain HTTP requests answered with 426 Upgrade Required",
		}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound WebSocket messages by frame type",
		}, []string{"type"}),
		MessageSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_size_bytes",
			Help:      "Inbound message payload size in bytes",
			Buckets:   []float64{16, 128, 1024, 8192, 65536, 1 << 20, 16 << 20},
		}),
		Sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_sends_total",
			Help:      "Per-recipient broadcast sends by status",
		}, []string{"status"}),
		Pings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_total",
			Help:      "Keepalive pings by status",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handshake counts one upgrade attempt.
func (m *Metrics) Handshake(result string) {
	if m == nil {
		return
	}
	m.Handshakes.WithLabelValues(result).Inc()
}

// ConnectionOpened records an admitted connection entering the registry.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// ConnectionClosed records a connection leaving the registry after d.
func (m *Metrics) ConnectionClosed(d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
	m.ConnectionDuration.Observe(d.Seconds())
}

// PlainRequest counts a non-upgrade request.
func (m *Metrics) PlainRequest() {
	if m == nil {
		return
	}
	m.UpgradeRequired.Inc()
}

// MessageReceived counts one inbound message.
func (m *Metrics) MessageReceived(frameType string, size int) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(frameType).Inc()
	m.MessageSize.Observe(float64(size))
}

// Send counts one per-recipient send attempt.
func (m *Metrics) Send(err error) {
	if m == nil {
		return
	}
	m.Sends.WithLabelValues(status(err)).Inc()
}

// Ping counts one keepalive probe.
func (m *Metrics) Ping(err error) {
	if m == nil {
		return
	}
	m.Pings.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logging.GetLogger()),
	})
}

// Serve exposes /metrics on addr until ctx is canceled. Metrics get their
// own listener since the relay port answers 426 to every plain request.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Metrics endpoint listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
