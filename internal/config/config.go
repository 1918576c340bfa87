// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. Values come from environment
// variables, optionally seeded from a local .env file.
type Config struct {
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	MaxBookings    int    `envconfig:"MAX_BOOKINGS" default:"2"`
	JWTSecret      string `envconfig:"SECRET_KEY" required:"true"`
	TokenExpiryMin int    `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"30"`

	DB Database
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"bookdesk"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// TokenTTL returns the access token lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpiryMin) * time.Minute
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}
