package config

import (
	"fmt"
	"net/url"
)

// DatabaseConfig holds PostgreSQL database configuration for the
// postgres enrollment store
type DatabaseConfig struct {
	Host     string `env:"TFA_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"TFA_PG_PORT" env-default:"5432"`
	Database string `env:"TFA_PG_DATABASE" env-default:"tfa_db"`
	User     string `env:"TFA_PG_USER" env-default:"tfa"`
	Password string `env:"TFA_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"TFA_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database, d.Schema)
}

// NewDatabaseConfigFromEnv creates a DatabaseConfig from environment variables
func NewDatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     GetEnvOrDefault("TFA_PG_HOST", "localhost"),
		Port:     GetEnvUint16("TFA_PG_PORT", 5432),
		Database: GetEnvOrDefault("TFA_PG_DATABASE", "tfa_db"),
		User:     GetEnvOrDefault("TFA_PG_USER", "tfa"),
		Password: GetEnvOrDefault("TFA_PG_PASSWORD", "pwd"),
		Schema:   GetEnvOrDefault("TFA_PG_SCHEMA", "public"),
	}
}
