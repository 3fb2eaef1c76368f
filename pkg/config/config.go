package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/couple-finance/pkg/money"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Forecast      ForecastConfig
	Sweep         SweepConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       slog.Level
}

// ForecastConfig holds the engine settings shared by the sweep and the projector
type ForecastConfig struct {
	TZOffsetHours            int
	HorizonDays              int
	LowBalanceThresholdMinor int64
	CurrencyCode             string
	CacheTTL                 time.Duration
	DecimalComma             bool
	PartnerSyncInterval      time.Duration
}

type SweepConfig struct {
	Enabled           bool
	Schedule          string
	RunOnStart        bool
	PushAlertsEnabled bool
}

// Load reads configuration from environment variables, after loading an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	currency := strings.ToUpper(getEnv("CURRENCY_CODE", money.BRL))

	threshold, err := decimal.NewFromString(getEnv("FORECAST_LOW_BALANCE_THRESHOLD", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_LOW_BALANCE_THRESHOLD: %w", err)
	}
	if threshold.IsNegative() {
		return nil, fmt.Errorf("FORECAST_LOW_BALANCE_THRESHOLD must not be negative")
	}
	thresholdMinor, err := money.MinorFromDecimal(threshold, currency)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_LOW_BALANCE_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8081"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "couple-finance"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			LogLevel:       getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		},
		Forecast: ForecastConfig{
			TZOffsetHours:            getEnvAsInt("FORECAST_TZ_OFFSET_HOURS", -3),
			HorizonDays:              getEnvAsInt("FORECAST_HORIZON_DAYS", 30),
			LowBalanceThresholdMinor: thresholdMinor,
			CurrencyCode:             currency,
			CacheTTL:                 getEnvAsDuration("FORECAST_CACHE_TTL", 5*time.Minute),
			DecimalComma:             getEnvAsBool("FORECAST_DECIMAL_COMMA", false),
			PartnerSyncInterval:      getEnvAsDuration("PARTNER_SYNC_INTERVAL", 60*time.Second),
		},
		Sweep: SweepConfig{
			Enabled:           getEnvAsBool("SWEEP_ENABLED", true),
			Schedule:          getEnv("SWEEP_SCHEDULE", "5 0 * * *"),
			RunOnStart:        getEnvAsBool("SWEEP_RUN_ON_START", false),
			PushAlertsEnabled: getEnvAsBool("PUSH_ALERTS_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Forecast.TZOffsetHours < -12 || c.Forecast.TZOffsetHours > 14 {
		return fmt.Errorf("FORECAST_TZ_OFFSET_HOURS out of range: %d", c.Forecast.TZOffsetHours)
	}
	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("FORECAST_HORIZON_DAYS must be positive")
	}
	if c.Forecast.PartnerSyncInterval <= 0 {
		return fmt.Errorf("PARTNER_SYNC_INTERVAL must be positive")
	}
	if c.Sweep.Enabled {
		if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
			return fmt.Errorf("invalid SWEEP_SCHEDULE: %w", err)
		}
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err == nil {
		return level
	}
	return defaultValue
}
