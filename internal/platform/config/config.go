// Copyright (c) 2026 Paisa. All rights reserved.
// Author: platform@paisa.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (store, token service, mailer) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage driver identifiers accepted in STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// # Configuration Schema

// Config holds all runtime configuration for the Paisa identity server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StorageDriver selects the account store backend: "postgres" or "mongo".
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// Relational backend (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Document backend (MongoDB)
	MongoURL      string `env:"MONGO_URL"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"paisa"`

	// Process-wide signing secret for session and pending tokens.
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// Token lifetimes
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
	PendingTokenTTL time.Duration `env:"PENDING_TOKEN_TTL" envDefault:"10m"`

	// ResetCodeTTL bounds the validity of password-reset one-time codes.
	ResetCodeTTL time.Duration `env:"RESET_CODE_TTL" envDefault:"5m"`

	// VerificationBaseURL is the frontend page a new user lands on to enter
	// their OTP. The pending token is appended as a query parameter.
	VerificationBaseURL string `env:"VERIFICATION_BASE_URL" envDefault:"http://localhost:5173/verify-account"`

	// Outbound email (Brevo-compatible transactional API). When the key is
	// empty the service falls back to a log-only sender, so local
	// development never needs mail credentials.
	MailAPIURL    string        `env:"MAIL_API_URL"    envDefault:"https://api.brevo.com/v3/smtp/email"`
	MailAPIKey    string        `env:"MAIL_API_KEY"`
	MailFromEmail string        `env:"MAIL_FROM_EMAIL" envDefault:"no-reply@paisa.app"`
	MailFromName  string        `env:"MAIL_FROM_NAME"  envDefault:"Paisa"`
	MailTimeout   time.Duration `env:"MAIL_TIMEOUT"    envDefault:"10s"`

	// MailSendsPerSecond paces outbound delivery below the provider quota.
	MailSendsPerSecond float64 `env:"MAIL_SENDS_PER_SECOND" envDefault:"5"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// The selected storage driver must come with its connection string.
	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	case DriverMongo:
		if cfg.MongoURL == "" {
			return nil, fmt.Errorf("config: MONGO_URL is required when STORAGE_DRIVER=mongo")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
