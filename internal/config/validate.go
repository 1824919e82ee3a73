package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Providers.EOD.APIKey == "" {
		return errors.New("providers.eod.api_key is required")
	}
	if err := c.Providers.EOD.validate("providers.eod"); err != nil {
		return err
	}
	if err := c.Providers.CoinGecko.validate("providers.coingecko"); err != nil {
		return err
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if c.Retry.BaseDelay < 0 {
		return errors.New("retry.base_delay must be >= 0")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1, got %g", c.Retry.Multiplier)
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return errors.New("store.sqlite.path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be one of postgres, sqlite, memory, got %q", c.Store.Driver)
	}

	if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
		return fmt.Errorf("refresh.schedule %q: %w", c.Refresh.Schedule, err)
	}
	if c.Refresh.Skew < 0 {
		return errors.New("refresh.skew must be >= 0")
	}
	if c.Refresh.Timeout < 0 {
		return errors.New("refresh.timeout must be >= 0")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.AdminKey == "" {
		return errors.New("server.admin_key is required")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (p *ProviderConfig) validate(prefix string) error {
	if p.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required", prefix)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be > 0", prefix)
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("%s.rate_limit must be >= 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a log.level value to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}
