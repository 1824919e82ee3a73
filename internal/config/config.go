package config

import "time"

// Config is the root configuration for the price-table service.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Providers ProvidersConfig `yaml:"providers"`
	Retry     RetryConfig     `yaml:"retry"`
	Store     StoreConfig     `yaml:"store"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// InstanceConfig identifies this instance in logs.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProvidersConfig holds the price provider endpoints.
type ProvidersConfig struct {
	EOD       ProviderConfig `yaml:"eod"`
	CoinGecko ProviderConfig `yaml:"coingecko"`
}

// ProviderConfig holds settings for one price provider.
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int           `yaml:"burst"`
}

// RetryConfig holds the backoff policy for provider requests.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver   string       `yaml:"driver"`
	Postgres DBConfig     `yaml:"postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RefreshConfig holds the snapshot schedule.
type RefreshConfig struct {
	Schedule   string        `yaml:"schedule"` // 5-field cron, evaluated in UTC
	Skew       time.Duration `yaml:"skew"`     // added to the run time before keying
	RunOnStart bool          `yaml:"run_on_start"`
	Timeout    time.Duration `yaml:"timeout"` // 0 = no bound
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	AdminKey        string        `yaml:"admin_key"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
