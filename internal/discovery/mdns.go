package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/logging"
)

const (
	// ServiceType is the mDNS service type fanout relays advertise
	ServiceType = "_fanout._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second
)

// TXT record keys
const (
	txtPath    = "path"
	txtVersion = "version"
	txtTLS     = "tls"
)

// ErrRelayNotFound is returned by Find when no matching relay answered in time.
var ErrRelayNotFound = errors.New("relay not found")

// Scanner browses the local network for relays.
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for the scanner's timeout and returns every relay that answered.
func (s *Scanner) Scan(ctx context.Context) ([]*Relay, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu     sync.Mutex
		relays []*Relay
		seen   = make(map[string]bool)
	)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for entry := range entries {
			relay := parseServiceEntry(entry)
			if relay == nil {
				continue
			}
			mu.Lock()
			if !seen[relay.Instance+"@"+relay.Address()] {
				seen[relay.Instance+"@"+relay.Address()] = true
				relays = append(relays, relay)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the context is done.
	select {
	case <-collected:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	logging.Debug("mDNS scan complete", zap.Int("relays", len(relays)))
	return append([]*Relay(nil), relays...), nil
}

// Find waits for the relay advertised under instance. An empty instance
// matches the first relay that answers.
func (s *Scanner) Find(ctx context.Context, instance string) (*Relay, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Relay, 1)

	go func() {
		for entry := range entries {
			relay := parseServiceEntry(entry)
			if relay == nil {
				continue
			}
			if instance == "" || relay.Instance == instance {
				select {
				case found <- relay:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case relay := <-found:
		return relay, nil
	case <-ctx.Done():
		// A match may have canceled the context itself.
		select {
		case relay := <-found:
			return relay, nil
		default:
		}
		if instance == "" {
			return nil, ErrRelayNotFound
		}
		return nil, fmt.Errorf("%w: %q", ErrRelayNotFound, instance)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Relay.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Relay {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := parseTXT(entry.Text)

	return &Relay{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Path:         metadata[txtPath],
		Version:      metadata[txtVersion],
		TLS:          metadata[txtTLS] == "1",
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT records. A key without "=" maps to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		if key == "" {
			continue
		}
		metadata[key] = value
	}
	return metadata
}

// Scan is a convenience function to browse with a custom timeout
func Scan(ctx context.Context, timeout time.Duration) ([]*Relay, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}
