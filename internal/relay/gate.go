package relay

import (
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"

	"github.com/muurk/fanout/internal/auth"
	"github.com/muurk/fanout/internal/logging"
)

// upgradeRequiredBody is the plain-text body of every 426 response.
var upgradeRequiredBody = []byte(http.StatusText(http.StatusUpgradeRequired))

// isUpgradeRequest reports whether r asks for a protocol switch. Any
// protocol counts; the upgrader rejects non-WebSocket ones after the
// authorization check, so unauthorized clients learn nothing either way.
func isUpgradeRequest(r *http.Request) bool {
	return httpguts.HeaderValuesContainsToken(r.Header["Connection"], "upgrade") &&
		strings.TrimSpace(r.Header.Get("Upgrade")) != ""
}

// writeUpgradeRequired answers a plain HTTP request with 426 and a short
// explanatory body.
func writeUpgradeRequired(w http.ResponseWriter, r *http.Request) {
	headers := map[string]string{
		"Content-Type":   "text/plain",
		"Content-Length": strconv.Itoa(len(upgradeRequiredBody)),
		"Upgrade":        "websocket",
	}
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusUpgradeRequired)
	_, _ = w.Write(upgradeRequiredBody)

	logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, flattenHeaders(r.Header))
	logging.LogHTTPResponse(r.RemoteAddr, http.StatusUpgradeRequired, headers)
}

// terminate drops the transport under a denied upgrade request. Nothing is
// written: no status line, no body. On TCP the socket is reset (linger 0).
func terminate(w http.ResponseWriter, r *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		// HTTP/2 and test recorders cannot be hijacked; aborting the
		// handler makes net/http drop the stream without a response.
		panic(http.ErrAbortHandler)
	}

	conn, _, err := hj.Hijack()
	if err != nil {
		logging.Warn("Failed to hijack denied connection",
			zap.String("client_ip", auth.ClientIP(r)),
			zap.Error(err),
		)
		panic(http.ErrAbortHandler)
	}

	raw := conn
	if tlsConn, ok := conn.(*tls.Conn); ok {
		// Skip close_notify; the client gets a bare reset.
		raw = tlsConn.NetConn()
	}
	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = raw.Close()
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}
