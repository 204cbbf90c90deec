package config

import "time"

// Config holds every setting the relay reads at startup. It is built once by
// Load and then passed by pointer into the relay, metrics and discovery
// components; nothing mutates it afterwards.
type Config struct {
	Host  string `yaml:"host" env:"HOST"`
	Port  int    `yaml:"port" env:"PORT"`
	Token string `yaml:"token" env:"TOKEN"` // Shared secret compared against the "t" query parameter

	PingInterval    time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	MaxMessageSize  int64         `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"` // Bytes; 0 disables the limit
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	CertPath string `yaml:"tls_cert,omitempty" env:"TLS_CERT"` // Optional; both or neither with KeyPath
	KeyPath  string `yaml:"tls_key,omitempty" env:"TLS_KEY"`

	MetricsAddr string `yaml:"metrics_addr,omitempty" env:"METRICS_ADDR"` // Empty = metrics disabled
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`

	Advertise   bool   `yaml:"advertise" env:"ADVERTISE"` // Announce the relay over mDNS
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultPingInterval    = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultMaxMessageSize  = 100 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultServiceName     = "fanout"
)

// Default returns a Config populated with default values. Token has no
// default; Validate rejects an empty one.
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		PingInterval:    DefaultPingInterval,
		WriteTimeout:    DefaultWriteTimeout,
		MaxMessageSize:  DefaultMaxMessageSize,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        DefaultLogLevel,
		ServiceName:     DefaultServiceName,
	}
}

// TLSEnabled reports whether the relay should terminate TLS itself.
func (c *Config) TLSEnabled() bool {
	return c.CertPath != "" && c.KeyPath != ""
}
