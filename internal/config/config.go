// Package config loads flix-edge settings from FLIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/flix-app/flix-cache/pkg/logging"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds every setting of the edge process.
type Config struct {
	ListenAddr string `env:"FLIX_LISTEN_ADDR" envDefault:":8080"`

	// UpstreamURL is the application origin requests are proxied to.
	UpstreamURL string `env:"FLIX_UPSTREAM_URL" envDefault:"http://localhost:3000"`

	// PublicOrigin resolves the shell and offline page for relative
	// navigation requests. Empty means UpstreamURL.
	PublicOrigin string `env:"FLIX_PUBLIC_ORIGIN"`

	Version         string   `env:"FLIX_VERSION"           envDefault:"1"`
	Manifest        []string `env:"FLIX_MANIFEST"          envSeparator:","`
	AutoSkipWaiting bool     `env:"FLIX_AUTO_SKIP_WAITING" envDefault:"true"`

	Store       string `env:"FLIX_STORE"        envDefault:"memory"`
	RedisAddr   string `env:"FLIX_REDIS_ADDR"   envDefault:"localhost:6379"`
	RedisDB     int    `env:"FLIX_REDIS_DB"     envDefault:"0"`
	RedisPrefix string `env:"FLIX_REDIS_PREFIX" envDefault:"flix"`

	SyncDBPath   string `env:"FLIX_SYNC_DB"       envDefault:"flix-sync.db"`
	SyncEndpoint string `env:"FLIX_SYNC_ENDPOINT"`

	TMDBAPIKey  string `env:"FLIX_TMDB_API_KEY"`
	TMDBBaseURL string `env:"FLIX_TMDB_BASE_URL" envDefault:"https://api.themoviedb.org/3"`

	LogLevel  string `env:"FLIX_LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"FLIX_LOG_PRETTY" envDefault:"false"`

	OTelEndpoint string `env:"FLIX_OTEL_ENDPOINT"`

	ProbeURL         string        `env:"FLIX_PROBE_URL"`
	ProbeInterval    time.Duration `env:"FLIX_PROBE_INTERVAL"     envDefault:"30s"`
	OfflineThreshold int           `env:"FLIX_OFFLINE_THRESHOLD"  envDefault:"1"`
	SweepInterval    time.Duration `env:"FLIX_CACHE_SWEEP_INTERVAL" envDefault:"5m"`
	RequestTimeout   time.Duration `env:"FLIX_REQUEST_TIMEOUT"    envDefault:"30s"`
	ShutdownTimeout  time.Duration `env:"FLIX_SHUTDOWN_TIMEOUT"   envDefault:"10s"`
	UserAgent        string        `env:"FLIX_USER_AGENT"         envDefault:"flix-edge/1.0"`
}

// Load parses the environment. The result is not validated.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if strings.TrimSpace(c.Version) == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if err := absoluteURL("upstream url", c.UpstreamURL); err != nil {
		errs = append(errs, err)
	}
	if c.PublicOrigin != "" {
		if err := absoluteURL("public origin", c.PublicOrigin); err != nil {
			errs = append(errs, err)
		}
	}
	if c.SyncEndpoint != "" {
		if err := absoluteURL("sync endpoint", c.SyncEndpoint); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ProbeURL != "" {
		if err := absoluteURL("probe url", c.ProbeURL); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("redis address is required for the redis store"))
		}
		if c.RedisDB < 0 {
			errs = append(errs, fmt.Errorf("redis db must be >= 0 (got %d)", c.RedisDB))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreRedis))
	}

	if !logging.ValidLevel(logging.LogLevel(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.OfflineThreshold < 1 {
		errs = append(errs, fmt.Errorf("offline threshold must be >= 1 (got %d)", c.OfflineThreshold))
	}
	for name, d := range map[string]time.Duration{
		"probe interval":   c.ProbeInterval,
		"sweep interval":   c.SweepInterval,
		"request timeout":  c.RequestTimeout,
		"shutdown timeout": c.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive (got %s)", name, d))
		}
	}

	return errors.Join(errs...)
}

// Upstream returns the parsed upstream URL. Call Validate first.
func (c *Config) Upstream() *url.URL {
	u, _ := url.Parse(c.UpstreamURL)
	return u
}

// Origin returns scheme://host used to resolve shell paths.
func (c *Config) Origin() string {
	raw := c.PublicOrigin
	if raw == "" {
		raw = c.UpstreamURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	return u.Scheme + "://" + u.Host
}

// Probe returns the URL polled while offline; defaults to the upstream shell.
func (c *Config) Probe() string {
	if c.ProbeURL != "" {
		return c.ProbeURL
	}
	return c.Origin() + "/"
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

func absoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be absolute (got %q)", name, raw)
	}
	return nil
}
