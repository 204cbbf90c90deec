package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Relay is a fanout relay found on the local network.
type Relay struct {
	// Instance is the advertised service instance name (e.g., "fanout")
	Instance string

	// Hostname is the mDNS hostname (e.g., "build-box.local.")
	Hostname string

	// IP is the relay address, IPv4 preferred
	IP string

	// Port is the relay's HTTP port
	Port int

	// Path is the WebSocket path from the "path" TXT record
	Path string

	// Version is the relay build version from the "version" TXT record
	Version string

	// TLS is set when the relay advertises "tls=1"
	TLS bool

	// Metadata holds every TXT record, including the ones above
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable description of the relay
func (r *Relay) String() string {
	return fmt.Sprintf("fanout relay %q (%s) at %s", r.Instance, r.Hostname, r.Address())
}

// Address returns host:port, bracketing IPv6 addresses.
func (r *Relay) Address() string {
	return net.JoinHostPort(r.IP, strconv.Itoa(r.Port))
}

// URL returns the WebSocket URL of the relay, without a token.
func (r *Relay) URL() string {
	scheme := "ws"
	if r.TLS {
		scheme = "wss"
	}
	path := r.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Address(), path)
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (r *Relay) GetMetadata(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}
