package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.Handshake(ResultAdmitted)
	m.ConnectionOpened()
	m.ConnectionClosed(time.Second)
	m.PlainRequest()
	m.MessageReceived("text", 5)
	m.Send(nil)
	m.Ping(errors.New("boom"))

	if m.Registry() != nil {
		t.Error("nil Metrics should have a nil registry")
	}
}

func TestCounters(t *testing.T) {
	m := New("test")

	m.Handshake(ResultAdmitted)
	m.Handshake(ResultDenied)
	m.Handshake(ResultDenied)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed(2 * time.Second)
	m.Send(nil)
	m.Send(errors.New("broken pipe"))
	m.Ping(nil)

	if got := testutil.ToFloat64(m.Handshakes.WithLabelValues(ResultDenied)); got != 2 {
		t.Errorf("denied handshakes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ActiveConnections); got != 1 {
		t.Errorf("active connections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Sends.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("failed sends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Pings.WithLabelValues(StatusOK)); got != 1 {
		t.Errorf("ok pings = %v, want 1", got)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(""), New("")
	a.PlainRequest()

	if got := testutil.ToFloat64(b.UpgradeRequired); got != 0 {
		t.Errorf("second instance saw %v plain requests, want 0", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("fanout")
	m.MessageReceived("binary", 42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `fanout_messages_received_total{type="binary"} 1`) {
		t.Errorf("metrics output missing message counter:\n%s", body)
	}
}
