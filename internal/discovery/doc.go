// Package discovery finds fanout relays on the local network with mDNS.
//
// A relay started with --advertise registers itself as a "_fanout._tcp"
// service. Its TXT records carry the WebSocket path ("path=/"), the build
// version ("version=...") and "tls=1" when it serves wss. The chat client
// browses for that service type so users can join a relay without typing an
// address. The token is never advertised.
//
// # Usage Example
//
//	relays, err := discovery.Scan(ctx, 3*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, r := range relays {
//	    fmt.Printf("%s  %s  (version %s)\n", r.Instance, r.URL(), r.Version)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Relay and client must share a network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
