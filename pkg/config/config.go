// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string `validate:"oneof=development staging production"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// Timezone is the fixed reference timezone (IANA name) used for all
	// schedule math. Never the local machine zone.
	Timezone string `validate:"required"`

	// GlobalMode is the engine-wide operating mode: autonomous or
	// human_in_the_loop.
	GlobalMode string `validate:"oneof=autonomous human_in_the_loop"`

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis (optional; enables the distributed idempotency-key guard)
	RedisURL string

	// RabbitMQ (optional; audit event publishing)
	RabbitMQURL string

	// Mail
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Engine
	TickInterval        time.Duration `validate:"min=1s"`
	RunLogCap           int           `validate:"min=1"`
	CollaboratorTimeout time.Duration `validate:"min=100ms"`
	MaxDraftsPerRule    int           `validate:"min=1"`

	// Worker
	WorkerHealthAddr string
}

// Load loads configuration from environment variables.
// A .env file is read if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TIMEZONE", "UTC"),

		GlobalMode: getEnv("GLOBAL_MODE", "human_in_the_loop"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "bookhive.db"),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getIntEnv("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", "noreply@bookhive.local"),

		TickInterval:        getDurationEnv("TICK_INTERVAL", time.Minute),
		RunLogCap:           getIntEnv("RUN_LOG_CAP", 50),
		CollaboratorTimeout: getDurationEnv("COLLABORATOR_TIMEOUT", 10*time.Second),
		MaxDraftsPerRule:    getIntEnv("MAX_DRAFTS_PER_RULE", 20),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured reference timezone.
// Validate must have succeeded before calling.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true when running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
