package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/logging"
)

// Advertisement describes how a relay announces itself.
type Advertisement struct {
	Instance string
	Port     int
	Path     string
	Version  string
	TLS      bool
}

// TXT returns the TXT records for the advertisement.
func (a Advertisement) TXT() []string {
	path := a.Path
	if path == "" {
		path = "/"
	}
	txt := []string{txtPath + "=" + path}
	if a.Version != "" {
		txt = append(txt, txtVersion+"="+a.Version)
	}
	if a.TLS {
		txt = append(txt, txtTLS+"=1")
	}
	return txt
}

// Advertise registers the relay with mDNS and keeps answering queries until
// ctx is canceled.
func Advertise(ctx context.Context, ad Advertisement) error {
	if ad.Instance == "" {
		return errors.New("mDNS instance name is empty")
	}
	if ad.Port <= 0 {
		return fmt.Errorf("invalid port %d for mDNS advertisement", ad.Port)
	}

	server, err := zeroconf.Register(ad.Instance, ServiceType, ServiceDomain, ad.Port, ad.TXT(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	defer server.Shutdown()

	logging.Info("Advertising relay via mDNS",
		zap.String("instance", ad.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", ad.Port),
	)

	<-ctx.Done()
	logging.Debug("mDNS advertisement stopped", zap.String("instance", ad.Instance))
	return nil
}
