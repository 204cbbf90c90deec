package relay

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/logging"
)

// NewTLSConfig loads a certificate pair for serving wss:// directly. Only
// HTTP/1.1 is offered: WebSocket upgrades need a hijackable connection.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}, nil
}
