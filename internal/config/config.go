package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Sleeper API
	SleeperBaseURL       string        `envconfig:"SLEEPER_BASE_URL" default:"https://api.sleeper.app/v1"`
	SleeperTimeout       time.Duration `envconfig:"SLEEPER_TIMEOUT" default:"30s"`
	SleeperMaxConcurrent int           `envconfig:"SLEEPER_MAX_CONCURRENT" default:"4"`
	SleeperMaxRetries    int           `envconfig:"SLEEPER_MAX_RETRIES" default:"0"`
	SleeperRPS           float64       `envconfig:"SLEEPER_RPS" default:"10"` // Sleeper asks for < 1000 calls/min

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"ffrankings"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"ffrankings_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP API
	HTTPPort   int    `envconfig:"HTTP_PORT" default:"8080"`
	CronSecret string `envconfig:"CRON_SECRET" default:""`

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	SnapshotCron    string `envconfig:"SNAPSHOT_CRON" default:"0 9 * * 2"` // Tuesdays 09:00, after MNF
	SnapshotLockKey int64  `envconfig:"SNAPSHOT_LOCK_KEY" default:"7342001"`

	// Week resolution
	SeasonStart time.Time `envconfig:"SEASON_START" default:"2025-09-04T00:00:00Z"`

	// Caching TTL
	CacheTTLRankings time.Duration `envconfig:"CACHE_TTL_RANKINGS" default:"10m"`
	CacheTTLHistory  time.Duration `envconfig:"CACHE_TTL_HISTORY" default:"1h"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SleeperBaseURL == "" {
		return fmt.Errorf("SLEEPER_BASE_URL is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.SleeperMaxConcurrent < 1 {
		return fmt.Errorf("SLEEPER_MAX_CONCURRENT must be at least 1")
	}

	if c.SleeperRPS < 0 {
		return fmt.Errorf("SLEEPER_RPS must not be negative")
	}

	if c.SleeperMaxRetries < 0 {
		return fmt.Errorf("SLEEPER_MAX_RETRIES must not be negative")
	}

	if c.CronSecret == "" && c.AppEnv == "production" {
		return fmt.Errorf("CRON_SECRET must be set in production")
	}

	if c.SeasonStart.IsZero() {
		return fmt.Errorf("SEASON_START is required")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
