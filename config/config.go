package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Ledger         LedgerConfig         `mapstructure:"ledger"`
	Pin            PinConfig            `mapstructure:"pin"`
	Limits         LimitsConfig         `mapstructure:"limits"`
	Risk           RiskConfig           `mapstructure:"risk"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Log            LogConfig            `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the balance store backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`    // bounded wait for row locks
	IsolationLevel  string        `mapstructure:"isolation_level"` // read_committed, repeatable_read, serializable
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LedgerConfig controls the ledger engine and transfer orchestration.
type LedgerConfig struct {
	ChecksumSecret   string        `mapstructure:"checksum_secret"`
	DefaultCurrency  string        `mapstructure:"default_currency"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
	ReferenceRetries int           `mapstructure:"reference_retries"`
	PinRequiredTypes []string      `mapstructure:"pin_required_types"`
}

// PinConfig is the PIN lockout policy applied to new wallets.
type PinConfig struct {
	MaxAttempts        int `mapstructure:"max_attempts"`
	BaseLockoutMinutes int `mapstructure:"base_lockout_minutes"`
	MaxLockoutMinutes  int `mapstructure:"max_lockout_minutes"`
}

// LimitsConfig seeds a user's daily limit row. Amounts are minor units.
type LimitsConfig struct {
	DailyLimit             int64 `mapstructure:"daily_limit"`
	SingleTransactionLimit int64 `mapstructure:"single_transaction_limit"`
	MaxDailyTransactions   int   `mapstructure:"max_daily_transactions"`
}

type RiskConfig struct {
	LargeAmountThreshold int64 `mapstructure:"large_amount_threshold"`
	LargeAmountScore     int   `mapstructure:"large_amount_score"`
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OperationTimeout    time.Duration `mapstructure:"operation_timeout"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger.ChecksumSecret == "" && c.Server.Mode != "test" {
		errs = append(errs, errors.New("ledger.checksum_secret is required"))
	}
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	switch c.Database.IsolationLevel {
	case "read_committed", "repeatable_read", "serializable":
	default:
		errs = append(errs, fmt.Errorf("database.isolation_level %q is not supported", c.Database.IsolationLevel))
	}
	if c.Pin.MaxAttempts <= 0 {
		errs = append(errs, errors.New("pin.max_attempts must be positive"))
	}
	if c.Ledger.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("ledger.idempotency_ttl must be positive"))
	}
	if c.Limits.DailyLimit < 0 || c.Limits.SingleTransactionLimit < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WLT_.
// Nested keys use underscore: WLT_DATABASE_HOST, WLT_LEDGER_CHECKSUM_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.lock_timeout", "5s")
	v.SetDefault("database.isolation_level", "read_committed")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ledger.checksum_secret", "")
	v.SetDefault("ledger.default_currency", "USD")
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("ledger.reference_retries", 3)
	v.SetDefault("ledger.pin_required_types", []string{"wallet_to_wallet", "purchase", "withdrawal"})
	v.SetDefault("pin.max_attempts", 3)
	v.SetDefault("pin.base_lockout_minutes", 30)
	v.SetDefault("pin.max_lockout_minutes", 1440)
	v.SetDefault("limits.daily_limit", 100000000)
	v.SetDefault("limits.single_transaction_limit", 10000000)
	v.SetDefault("limits.max_daily_transactions", 50)
	v.SetDefault("risk.large_amount_threshold", 5000000)
	v.SetDefault("risk.large_amount_score", 60)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", "60s")
	v.SetDefault("circuit_breaker.timeout", "30s")
	v.SetDefault("circuit_breaker.consecutive_failures", 5)
	v.SetDefault("circuit_breaker.operation_timeout", "200ms")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "wallet_ledger")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WLT_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
