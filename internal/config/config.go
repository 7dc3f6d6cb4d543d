package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the process configuration, loaded from the environment with an
// optional .env file for local runs.
type Config struct {
	DBConnStr string

	// Connection pool bounds; each unit of work holds one connection for
	// its whole span
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	LogLevel string

	// DefaultDollarRate is the last-resort USD to BRL value used when every
	// cache layer misses and the oracle is unreachable
	DefaultDollarRate decimal.Decimal

	// DollarCacheTTL bounds both the local memoized value and the shared
	// key-value entry
	DollarCacheTTL time.Duration

	// Cron expressions for the scheduled jobs
	RolloverSchedule    string
	BillsSchedule       string
	SnapshotsSchedule   string
	PriceUpdateSchedule string
}

// Load reads the configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBConnStr:           os.Getenv("DB_CONN_STR"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
		RolloverSchedule:    envOr("ROLLOVER_SCHEDULE", "0 3 1 * *"),
		BillsSchedule:       envOr("BILLS_SCHEDULE", "0 4 * * *"),
		SnapshotsSchedule:   envOr("SNAPSHOTS_SCHEDULE", "30 3 1 * *"),
		PriceUpdateSchedule: envOr("PRICE_UPDATE_SCHEDULE", "*/30 * * * *"),
	}

	if cfg.DBConnStr == "" {
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			envOr("DB_HOST", "localhost"),
			envOr("DB_PORT", "5432"),
			envOr("DB_USER", "postgres"),
			envOr("DB_PASSWORD", "postgres"),
			envOr("DB_NAME", "centavo"),
		)
	}

	maxOpen, err := envIntOr("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxOpenConns = maxOpen

	maxIdle, err := envIntOr("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxIdleConns = maxIdle

	lifetime, err := time.ParseDuration(envOr("DB_CONN_MAX_LIFETIME", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	cfg.DBConnMaxLifetime = lifetime

	rate, err := decimal.NewFromString(envOr("DEFAULT_DOLLAR_RATE", "5.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_DOLLAR_RATE: %w", err)
	}
	cfg.DefaultDollarRate = rate

	ttl, err := time.ParseDuration(envOr("DOLLAR_CACHE_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOLLAR_CACHE_TTL: %w", err)
	}
	cfg.DollarCacheTTL = ttl

	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
