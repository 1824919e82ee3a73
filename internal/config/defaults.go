package config

import (
	"time"

	"github.com/rickgao/pricetables/internal/api"
	"github.com/rickgao/pricetables/internal/retry"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID       = "pricetables"
	DefaultProviderTimeout  = 10 * time.Second
	DefaultDriver           = DriverPostgres
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultSQLitePath       = "data/pricetables.db"
	DefaultSchedule         = "55 5,11,17,23 * * *"
	DefaultSkew             = 5 * time.Minute
	DefaultServerPort       = 8080
	DefaultReadTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 60 * time.Second
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultEODBaseURL       = api.DefaultEODURL
	DefaultCoinGeckoBaseURL = api.DefaultCoinGeckoURL
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Provider defaults
	if c.Providers.EOD.BaseURL == "" {
		c.Providers.EOD.BaseURL = DefaultEODBaseURL
	}
	if c.Providers.CoinGecko.BaseURL == "" {
		c.Providers.CoinGecko.BaseURL = DefaultCoinGeckoBaseURL
	}
	applyProviderDefaults(&c.Providers.EOD)
	applyProviderDefaults(&c.Providers.CoinGecko)

	// Retry defaults
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = retry.DefaultMaxAttempts
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = retry.DefaultBaseDelay
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = retry.DefaultMultiplier
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultDriver
	}
	if c.Store.Postgres.Port == 0 {
		c.Store.Postgres.Port = DefaultDBPort
	}
	if c.Store.Postgres.SSLMode == "" {
		c.Store.Postgres.SSLMode = DefaultDBSSLMode
	}
	if c.Store.Postgres.MaxConns == 0 {
		c.Store.Postgres.MaxConns = DefaultMaxConns
	}
	if c.Store.Postgres.MinConns == 0 {
		c.Store.Postgres.MinConns = DefaultMinConns
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = DefaultSQLitePath
	}

	// Refresh defaults
	if c.Refresh.Schedule == "" {
		c.Refresh.Schedule = DefaultSchedule
	}
	if c.Refresh.Skew == 0 {
		c.Refresh.Skew = DefaultSkew
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.Timeout == 0 {
		p.Timeout = DefaultProviderTimeout
	}
	if p.RateLimit > 0 && p.Burst == 0 {
		p.Burst = 1
	}
}

// Policy converts the retry settings into a retry.Policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		Multiplier:  r.Multiplier,
		MaxDelay:    r.MaxDelay,
	}
}
