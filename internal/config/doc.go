// Package config builds the relay's startup configuration.
//
// Settings are layered, later sources overriding earlier ones:
//
//  1. Default() values (0.0.0.0:8000, 30s pings, info logging)
//  2. A YAML file: --config, or the default location if it exists
//  3. A dotenv file (--env-file, or ./.env if present), loaded into the environment
//  4. Environment variables (TOKEN, HOST, PORT, PING_INTERVAL, ...)
//  5. Command-line flags, applied by cmd/fanout-server
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/fanout/config.yaml or $HOME/.config/fanout/config.yaml
//   - macOS: $HOME/.config/fanout/config.yaml
//   - Windows: %LOCALAPPDATA%\fanout\config.yaml
//
// # Example
//
//	host: 0.0.0.0
//	port: 8000
//	token: secret123
//	ping_interval: 30s
//	metrics_addr: 127.0.0.1:9090
//
// The resulting Config is immutable once the server starts. A missing token
// is a startup error (ErrMissingToken).
package config
