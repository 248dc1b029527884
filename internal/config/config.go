// Package config loads the engine's runtime configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration.
type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	DatabaseURL string // empty selects the in-memory store
	RedisURL    string `validate:"omitempty,url"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	// CatalogFile is a YAML or JSON sector catalog. Empty selects the
	// catalog stored in Postgres when DatabaseURL is set, else the
	// built-in one.
	CatalogFile       string
	HistorySQLitePath string

	// FixtureFile seeds the in-memory store; ignored with DatabaseURL.
	FixtureFile string

	TickSchedule         string `validate:"required"`
	PriceRefreshSchedule string `validate:"required"`

	SnapshotTTL      time.Duration `validate:"gte=0"`
	EconomicsTTL     time.Duration `validate:"gte=0"`
	RedisTTL         time.Duration `validate:"gt=0"`
	ValuationWorkers int           `validate:"min=1,max=256"`
	HourlyVariation  float64       `validate:"gte=0,lt=1"`
	StaticFallback   bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8080, &errs),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CatalogFile:          getEnv("CATALOG_FILE", ""),
		HistorySQLitePath:    getEnv("HISTORY_SQLITE_PATH", ""),
		FixtureFile:          getEnv("FIXTURE_FILE", ""),
		TickSchedule:         getEnv("TICK_SCHEDULE", "@hourly"),
		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "@every 1m"),
		SnapshotTTL:          getEnvAsDuration("SNAPSHOT_TTL", time.Minute, &errs),
		EconomicsTTL:         getEnvAsDuration("ECONOMICS_TTL", 5*time.Minute, &errs),
		RedisTTL:             getEnvAsDuration("REDIS_TTL", 30*time.Second, &errs),
		ValuationWorkers:     getEnvAsInt("VALUATION_WORKERS", 8, &errs),
		HourlyVariation:      getEnvAsFloat("HOURLY_VARIATION", 0.05, &errs),
		StaticFallback:       getEnvAsBool("STATIC_FALLBACK", false, &errs),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and that both schedules parse.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for key, spec := range map[string]string{
		"TICK_SCHEDULE":          c.TickSchedule,
		"PRICE_REFRESH_SCHEDULE": c.PriceRefreshSchedule,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid config: %s %q: %w", key, spec, err)
		}
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvAsFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getEnvAsBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getEnvAsDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return dur
}
