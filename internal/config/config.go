package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

const (
	CacheBackendFreecache = "freecache"
	CacheBackendRedis     = "redis"
)

type Config struct {
	Environment string `toml:"-"`

	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MetricsHost string `toml:"metrics_host"`
	MetricsPort int    `toml:"metrics_port"`
	// CorsOrigins are the planner UI origins allowed to call the bridge.
	CorsOrigins []string `toml:"cors_origins"`
	// RateLimitPerMin caps bridge requests per user and route, 0 turns it
	// off. Only applied with the redis cache backend.
	RateLimitPerMin int `toml:"rate_limit_per_min"`

	// the scheduling backend
	BackendURL     string   `toml:"backend_url"`
	BackendTimeout Duration `toml:"backend_timeout"`
	// UserID is reconciled on startup, empty skips the initial load.
	UserID string `toml:"user_id"`

	// exercise record cache
	CacheBackend string   `toml:"cache_backend"`
	CacheSizeMB  int      `toml:"cache_size_mb"`
	CacheTTL     Duration `toml:"cache_ttl"`
	RedisHost    string   `toml:"redis_host"`
	RedisPort    int      `toml:"redis_port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	LogJSON     bool   `toml:"log_json"`

	SentryEnabled    bool `toml:"sentry_enabled"`
	HoneycombEnabled bool `toml:"honeycomb_enabled"`
}

// Duration decodes TOML strings like "90s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var (
		cfg  *Config
		name string
	)
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg, name = t.Development, "development"
	case "prod", "production":
		cfg, name = t.Production, "production"
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no [%s] section in config", name)
	}
	cfg.Environment = name
	return cfg, nil
}

// Load reads the env section of the TOML file at path, fills in defaults and
// validates the result.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return t.finish(env)
}

// Parse is Load for config already in memory.
func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return t.finish(env)
}

func (t *Toml) finish(env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid [%s] config: %w", cfg.Environment, err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9100
	}
	if c.MetricsHost == "" {
		c.MetricsHost = c.Host
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 2112
	}
	if c.BackendTimeout.Duration == 0 {
		c.BackendTimeout.Duration = 15 * time.Second
	}
	if c.CacheBackend == "" {
		c.CacheBackend = CacheBackendFreecache
	}
	if c.CacheSizeMB == 0 {
		c.CacheSizeMB = 16
	}
	if c.CacheTTL.Duration == 0 {
		c.CacheTTL.Duration = time.Hour
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("backend_url is required"))
	} else if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend_url %q is not an absolute url", c.BackendURL))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics_port %d out of range", c.MetricsPort))
	}
	if c.MetricsPort == c.Port && c.MetricsHost == c.Host {
		errs = append(errs, errors.New("metrics listener must differ from the bridge listener"))
	}
	switch c.CacheBackend {
	case CacheBackendFreecache:
	case CacheBackendRedis:
		if c.RedisHost == "" {
			errs = append(errs, errors.New("redis_host is required with the redis cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache_backend %q", c.CacheBackend))
	}
	if c.RateLimitPerMin < 0 {
		errs = append(errs, errors.New("rate_limit_per_min must not be negative"))
	}
	return multierr.Combine(errs...)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
