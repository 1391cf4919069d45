// Package config resolves runtime settings from CLI flags, the environment
// and built-in defaults, in that order of priority.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = "9092"
	DefaultAllowedOrigins  = "http://localhost:3000"
	DefaultPasswordTTL     = 30 * time.Minute
	DefaultSweepInterval   = 5 * time.Minute
	DefaultMaxRoomSize     = 10
	DefaultMaxMessageSize  = 64 * 1024
	DefaultPingInterval    = 25 * time.Second
	DefaultPingTimeout     = 60 * time.Second
	DefaultRateLimitEvents = 50
	DefaultRateLimitBurst  = 100
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds the resolved server configuration.
type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string

	PasswordTTL   time.Duration
	SweepInterval time.Duration
	MaxRoomSize   int

	MaxMessageSize int64
	PingInterval   time.Duration
	PingTimeout    time.Duration

	// Inbound events per second per connection, and the burst allowance.
	RateLimitEvents float64
	RateLimitBurst  int

	ShutdownTimeout time.Duration
}

// Options carries CLI flag values. Empty fields fall through to the
// environment, then to defaults.
type Options struct {
	Host            string
	Port            string
	AllowedOrigins  string
	PasswordTTL     string
	SweepInterval   string
	MaxRoomSize     string
	MaxMessageSize  string
	PingInterval    string
	PingTimeout     string
	RateLimitEvents string
	RateLimitBurst  string
	ShutdownTimeout string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		Host:           resolve(opts.Host, "HOST", DefaultHost),
		Port:           resolve(opts.Port, "PORT", DefaultPort),
		AllowedOrigins: splitOrigins(resolve(opts.AllowedOrigins, "ALLOWED_ORIGINS", DefaultAllowedOrigins)),
	}

	if _, err := strconv.ParseUint(cfg.Port, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: must be a number between 0 and 65535", cfg.Port)
	}

	var err error
	if cfg.PasswordTTL, err = duration(opts.PasswordTTL, "PASSWORD_TTL", DefaultPasswordTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration(opts.SweepInterval, "SWEEP_INTERVAL", DefaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.PingInterval, err = duration(opts.PingInterval, "PING_INTERVAL", DefaultPingInterval); err != nil {
		return nil, err
	}
	if cfg.PingTimeout, err = duration(opts.PingTimeout, "PING_TIMEOUT", DefaultPingTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = duration(opts.ShutdownTimeout, "SHUTDOWN_TIMEOUT", DefaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxRoomSize, err = integer(opts.MaxRoomSize, "MAX_ROOM_SIZE", DefaultMaxRoomSize); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = integer(opts.RateLimitBurst, "RATE_LIMIT_BURST", DefaultRateLimitBurst); err != nil {
		return nil, err
	}

	maxMessage, err := integer(opts.MaxMessageSize, "MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageSize = int64(maxMessage)

	events := resolve(opts.RateLimitEvents, "RATE_LIMIT_EVENTS", strconv.Itoa(DefaultRateLimitEvents))
	cfg.RateLimitEvents, err = strconv.ParseFloat(events, 64)
	if err != nil || cfg.RateLimitEvents <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_EVENTS %q: must be a positive number", events)
	}

	if cfg.PingTimeout <= cfg.PingInterval {
		return nil, fmt.Errorf("PING_TIMEOUT (%s) must be longer than PING_INTERVAL (%s)", cfg.PingTimeout, cfg.PingInterval)
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// OriginsHeader returns the allowed origins in CORS header form.
func (c *Config) OriginsHeader() string {
	return strings.Join(c.AllowedOrigins, ",")
}

func resolve(flag, env, def string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}

func duration(flag, env string, def time.Duration) (time.Duration, error) {
	raw := resolve(flag, env, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration such as 30s or 5m", env, raw)
	}
	return d, nil
}

func integer(flag, env string, def int) (int, error) {
	raw := resolve(flag, env, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", env, raw)
	}
	return n, nil
}

func splitOrigins(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	if len(out) == 0 {
		out = []string{DefaultAllowedOrigins}
	}
	return out
}
