package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "fanout"
	configFile = "config.yaml"
)

var (
	// ErrMissingToken is returned by Validate when no shared secret was configured.
	ErrMissingToken = errors.New("authorization token is not configured (set TOKEN or --token)")
)

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigPath is an explicit YAML file. When empty the default path is
	// tried and silently skipped if absent.
	ConfigPath string

	// EnvFile is a dotenv file loaded into the process environment before
	// env vars are read. When empty ".env" is tried and skipped if absent.
	EnvFile string
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/fanout or $HOME/.config/fanout
//   - macOS: $HOME/.config/fanout
//   - Windows: %LOCALAPPDATA%\fanout
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load builds a Config from defaults, then the YAML file, then the
// environment (including an optional dotenv file). Later sources win.
// Command-line flags are applied by the caller on top of the result.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if err := loadConfigFile(cfg, opts.ConfigPath); err != nil {
		return nil, err
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	if err := LoadEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadConfigFile(cfg *Config, path string) error {
	if path != "" {
		return LoadFile(path, cfg)
	}

	defaultPath, err := GetConfigPath()
	if err != nil {
		// No home directory is not an error for a server; env vars still work.
		return nil
	}
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		return nil
	}
	return LoadFile(defaultPath, cfg)
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// LoadEnv overlays environment variables onto cfg. Unset variables leave
// the corresponding field untouched.
func LoadEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the relay cannot start with.
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (expected 0-65535)", c.Port)
	}

	if c.PingInterval <= 0 {
		return fmt.Errorf("invalid ping interval %s (must be positive)", c.PingInterval)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout %s (must be positive)", c.WriteTimeout)
	}

	if c.MaxMessageSize < 0 {
		return fmt.Errorf("invalid max message size %d", c.MaxMessageSize)
	}

	if (c.CertPath == "") != (c.KeyPath == "") {
		return fmt.Errorf("both tls_cert and tls_key must be provided together, or neither")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", c.LogLevel)
	}

	return nil
}

// Addr returns the host:port the relay listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Save writes cfg as YAML to path atomically. The file is created with
// user-only permissions since it may hold the token.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
