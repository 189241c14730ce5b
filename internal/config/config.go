// Package config provides configuration management for the yield engine.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app" validate:"required"`
	Database       DatabaseConfig       `mapstructure:"database" validate:"required"`
	EventSource    EventSourceConfig    `mapstructure:"event_source" validate:"required"`
	Recommendation RecommendationConfig `mapstructure:"recommendation" validate:"required"`
	Analytics      AnalyticsConfig      `mapstructure:"analytics" validate:"required"`
	Scheduler      SchedulerConfig      `mapstructure:"scheduler" validate:"required"`
	Metrics        MetricsConfig        `mapstructure:"metrics" validate:"required"`
	Health         HealthConfig         `mapstructure:"health" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// EventSourceConfig represents how bid-lifecycle events are read.
// Mode "postgres" reads the events table directly; mode "http" talks to the
// ingestion service's read API.
type EventSourceConfig struct {
	Mode                 string  `mapstructure:"mode" validate:"required,oneof=postgres http"`
	BaseURL              string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey               string  `mapstructure:"api_key"`
	TimeoutSeconds       int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries           int     `mapstructure:"max_retries" validate:"gte=0"`
	RequestsPerSecond    float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	CircuitBreakerMax    int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}
// RecommendationConfig represents recommendation generation tuning
type RecommendationConfig struct {
	WindowDays             int `mapstructure:"window_days" validate:"required,gt=0"`
	DefaultBidderTimeoutMS int `mapstructure:"default_bidder_timeout_ms" validate:"required,gt=0"`
}

// AnalyticsConfig represents the experiment analysis read path
type AnalyticsConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
}

// SchedulerConfig represents the cron schedules of the surrounding service
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	GenerationSchedule string `mapstructure:"generation_schedule" validate:"required"`
	ExpirySchedule     string `mapstructure:"expiry_schedule" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health check server configuration
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
