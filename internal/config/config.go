package config

import (
	"fmt"

	"github.com/bookstore/services/market/pkg/logger"
	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MARKET_"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the market tool
type Config struct {
	ServiceName    string   `env:"SERVICE_NAME" envDefault:"market"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	Database       Database `envPrefix:"DB_"`
	BcryptCost     int      `env:"BCRYPT_COST" envDefault:"12"`
	FixturesFile   string   `env:"FIXTURES_FILE"`
	RabbitMQURL    string   `env:"RABBITMQ_URL"`
	PushgatewayURL string   `env:"PUSHGATEWAY_URL"`
	OTelEndpoint   string   `env:"OTEL_ENDPOINT"`
	GRPCPort       string   `env:"GRPC_PORT" envDefault:"50051"`
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"8080"`
}

// Database selects and tunes the relational store.
type Database struct {
	Driver   string `env:"DRIVER" envDefault:"sqlite"`
	DSN      string `env:"DSN" envDefault:"market.db"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// Load reads configuration from MARKET_* environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads MARKET_* environment variables without validating them, so
// callers can apply overrides first and call Validate afterwards.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
