// Package config defines all configuration for the OKX bridge. Config is
// loaded from a YAML file (default: configs/config.yaml) with sensitive
// fields overridable via OKX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/okx-bridge/okx/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Environment string       `mapstructure:"environment"` // "live" | "demo" | "sandbox"
	API         APIConfig    `mapstructure:"api"`
	Account     AccountConfig `mapstructure:"account"`
	Transport   TransportConfig `mapstructure:"transport"`
	WS          WSConfig     `mapstructure:"ws"`
	Instrument  InstrumentConfig `mapstructure:"instrument"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// APIConfig holds the OKX v5 API key triplet and REST/WS base URLs.
type APIConfig struct {
	ApiKey     string `mapstructure:"api_key"`
	Secret     string `mapstructure:"secret"`
	Passphrase string `mapstructure:"passphrase"`

	RESTBaseURL    string `mapstructure:"rest_base_url"`
	WSPublicURL    string `mapstructure:"ws_public_url"`
	WSPrivateURL   string `mapstructure:"ws_private_url"`
	WSBusinessURL  string `mapstructure:"ws_business_url"`
}

// AccountConfig carries the unified-account mode, which determines how
// trade mode ("cash" vs "cross") and position sizing are derived per
// instrument type (spec.md §9's Open Question (b)).
type AccountConfig struct {
	UnifiedMode types.UnifiedAccountMode `mapstructure:"unified_mode"`
}

// TransportConfig tunes the REST client: timeouts, retries, and the three
// token-bucket rate limits OKX enforces per endpoint category.
type TransportConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RetryCount       int           `mapstructure:"retry_count"`
	RetryWaitTime    time.Duration `mapstructure:"retry_wait_time"`
	RetryMaxWaitTime time.Duration `mapstructure:"retry_max_wait_time"`
	ClockSkewLimit   time.Duration `mapstructure:"clock_skew_limit"`

	OrderBucketCapacity   float64 `mapstructure:"order_bucket_capacity"`
	OrderBucketRate       float64 `mapstructure:"order_bucket_rate"`
	AccountBucketCapacity float64 `mapstructure:"account_bucket_capacity"`
	AccountBucketRate     float64 `mapstructure:"account_bucket_rate"`
	PublicBucketCapacity  float64 `mapstructure:"public_bucket_capacity"`
	PublicBucketRate      float64 `mapstructure:"public_bucket_rate"`
}

// WSConfig tunes WebSocket session behavior: ping cadence, reconnect
// backoff, and per-key buffering for the synchronizer.
type WSConfig struct {
	PingInterval       time.Duration `mapstructure:"ping_interval"`
	PongGraceMissed    int           `mapstructure:"pong_grace_missed"`
	ReconnectMinBackoff time.Duration `mapstructure:"reconnect_min_backoff"`
	ReconnectMaxBackoff time.Duration `mapstructure:"reconnect_max_backoff"`
	MaxSubsPerConn      int           `mapstructure:"max_subs_per_conn"`
	EventBufferSize     int           `mapstructure:"event_buffer_size"`
	LoginTimeout        time.Duration `mapstructure:"login_timeout"`
	MaxResyncFailures   int           `mapstructure:"max_resync_failures"`
	ResyncWindow        time.Duration `mapstructure:"resync_window"`
	OrphanGraceWindow   time.Duration `mapstructure:"orphan_grace_window"`
}

// InstrumentConfig points at the instrument CSV database used to seed
// Instrument metadata before any exchange round trip is made.
type InstrumentConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: OKX_API_KEY, OKX_SECRET, OKX_PASSPHRASE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("OKX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("OKX_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("OKX_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("OKX_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("environment", "demo")
	v.SetDefault("api.rest_base_url", "https://www.okx.com")
	v.SetDefault("api.ws_public_url", "wss://ws.okx.com:8443/ws/v5/public")
	v.SetDefault("api.ws_private_url", "wss://ws.okx.com:8443/ws/v5/private")
	v.SetDefault("api.ws_business_url", "wss://ws.okx.com:8443/ws/v5/business")
	v.SetDefault("account.unified_mode", types.AccountModeSingleCurrency)
	v.SetDefault("transport.request_timeout", 10*time.Second)
	v.SetDefault("transport.retry_count", 3)
	v.SetDefault("transport.retry_wait_time", 500*time.Millisecond)
	v.SetDefault("transport.retry_max_wait_time", 5*time.Second)
	v.SetDefault("transport.clock_skew_limit", 5*time.Second)
	v.SetDefault("transport.order_bucket_capacity", 60.0)
	v.SetDefault("transport.order_bucket_rate", 30.0)
	v.SetDefault("transport.account_bucket_capacity", 10.0)
	v.SetDefault("transport.account_bucket_rate", 5.0)
	v.SetDefault("transport.public_bucket_capacity", 20.0)
	v.SetDefault("transport.public_bucket_rate", 10.0)
	v.SetDefault("ws.ping_interval", 15*time.Second)
	v.SetDefault("ws.pong_grace_missed", 3)
	v.SetDefault("ws.reconnect_min_backoff", 1*time.Second)
	v.SetDefault("ws.reconnect_max_backoff", 30*time.Second)
	v.SetDefault("ws.max_subs_per_conn", 50)
	v.SetDefault("ws.event_buffer_size", 256)
	v.SetDefault("ws.login_timeout", 10*time.Second)
	v.SetDefault("ws.max_resync_failures", 5)
	v.SetDefault("ws.resync_window", 60*time.Second)
	v.SetDefault("ws.orphan_grace_window", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks all required fields and value ranges, naming every
// failing field rather than stopping at the first one (spec.md §6: "fail
// factory construction with a structured error naming each missing key").
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case "live", "demo", "sandbox":
	default:
		errs = append(errs, fmt.Errorf("environment must be one of: live, demo, sandbox"))
	}
	if c.API.ApiKey == "" {
		errs = append(errs, fmt.Errorf("api.api_key is required (set OKX_API_KEY)"))
	}
	if c.API.Secret == "" {
		errs = append(errs, fmt.Errorf("api.secret is required (set OKX_SECRET)"))
	}
	if c.API.Passphrase == "" {
		errs = append(errs, fmt.Errorf("api.passphrase is required (set OKX_PASSPHRASE)"))
	}
	if c.API.RESTBaseURL == "" {
		errs = append(errs, fmt.Errorf("api.rest_base_url is required"))
	}
	switch c.Account.UnifiedMode {
	case types.AccountModeSpot, types.AccountModeSingleCurrency, types.AccountModeMultiCurrency, types.AccountModePortfolio:
	default:
		errs = append(errs, fmt.Errorf("account.unified_mode must be a recognized unified account mode"))
	}
	if c.Transport.OrderBucketCapacity <= 0 {
		errs = append(errs, fmt.Errorf("transport.order_bucket_capacity must be > 0"))
	}
	if c.WS.MaxSubsPerConn <= 0 {
		errs = append(errs, fmt.Errorf("ws.max_subs_per_conn must be > 0"))
	}

	return errors.Join(errs...)
}

// ResolvedEnvironment resolves the configured environment string into the
// strongly typed enum the rest of the bridge consumes.
func (c *Config) ResolvedEnvironment() types.Environment {
	switch c.Environment {
	case "live":
		return types.EnvLive
	case "sandbox":
		return types.EnvSandbox
	default:
		return types.EnvDemo
	}
}
