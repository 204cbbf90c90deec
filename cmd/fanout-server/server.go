package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/fanout/internal/config"
	"github.com/muurk/fanout/internal/discovery"
	"github.com/muurk/fanout/internal/logging"
	"github.com/muurk/fanout/internal/metrics"
	"github.com/muurk/fanout/internal/relay"
	"github.com/muurk/fanout/internal/version"
)

// Server command flags
var (
	configPath   string
	envFile      string
	host         string
	port         int
	token        string
	pingInterval time.Duration
	metricsAddr  string
	certPath     string
	keyPath      string
	logLevel     string
	advertise    bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the relay",
	Long: `Start the fanout relay.

Settings are read from, in increasing priority: built-in defaults, the YAML
config file, a .env file, environment variables (TOKEN, HOST, PORT, ...) and
finally the flags below. The relay refuses to start without a token.`,
	Example: `  # Start on 0.0.0.0:8000 with the token from the environment
  TOKEN=secret123 fanout-server server

  # Custom port, Prometheus metrics and mDNS advertisement
  fanout-server server --token secret123 --port 9000 --metrics-addr 127.0.0.1:9090 --advertise

  # Serve wss:// with your own certificate
  fanout-server server --token secret123 --cert fullchain.pem --key privkey.pem`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file (default: OS config dir, if present)")
	serverCmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env, if present)")
	serverCmd.Flags().StringVar(&host, "host", config.DefaultHost, "Interface to listen on")
	serverCmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on")
	serverCmd.Flags().StringVar(&token, "token", "", "Shared token clients must present as ?t=")
	serverCmd.Flags().DurationVar(&pingInterval, "ping-interval", config.DefaultPingInterval, "Keepalive ping interval")
	serverCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled if empty)")
	serverCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves wss:// when set with --key)")
	serverCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serverCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	serverCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the relay on the local network via mDNS")

	// config show resolves the same sources as the server command.
	configShowCmd.Flags().AddFlagSet(serverCmd.Flags())
}

// applyFlags overlays the flags the user actually set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("token") {
		cfg.Token = token
	}
	if flags.Changed("ping-interval") {
		cfg.PingInterval = pingInterval
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("cert") {
		cfg.CertPath = certPath
	}
	if flags.Changed("key") {
		cfg.KeyPath = keyPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("advertise") {
		cfg.Advertise = advertise
	}
}

// loadConfig builds the effective configuration for the server command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: configPath, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync()

	logging.Info("Starting fanout relay",
		zap.String("version", version.Full()),
		zap.String("addr", cfg.Addr()),
		zap.Duration("ping_interval", cfg.PingInterval),
	)

	m := metrics.New("fanout")
	srv, err := relay.New(cfg, relay.NewBroadcastHandlers(cfg.Token), relay.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create relay: %w", err)
	}

	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ctx)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return m.Serve(ctx, cfg.MetricsAddr)
		})
	}

	if cfg.Advertise {
		ad := discovery.Advertisement{
			Instance: cfg.ServiceName,
			Port:     listenPort(srv.Addr(), cfg.Port),
			Version:  version.Version,
			TLS:      cfg.TLSEnabled(),
		}
		g.Go(func() error {
			if err := discovery.Advertise(ctx, ad); err != nil {
				// The relay stays up without mDNS.
				logging.Warn("mDNS advertisement failed", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logging.Info("Shutdown signal received, stopping relay...")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info("Relay stopped")
	return nil
}

// listenPort returns the bound port, which differs from the configured
// one when port 0 was requested.
func listenPort(addr net.Addr, fallback int) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return fallback
}
