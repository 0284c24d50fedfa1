package config

import (
	"time"
)

var PersistenceTypes = []string{"memory", "file", "postgres", "redis"}

// StorageConfig selects where enrollments and session flags live.
// Session flags go to Redis when Persistence is "redis" and stay in memory
// otherwise.
type StorageConfig struct {
	Persistence string
	DataDir     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// SessionFlagTTL bounds how long a verified session skips the challenge.
	// Zero means until the session itself goes away.
	SessionFlagTTL time.Duration

	Database DatabaseConfig
}

// NewStorageConfigFromEnv loads StorageConfig from environment variables.
//
// Environment variables:
//   - TFA_PERSISTENCE: memory, file, postgres or redis (default: memory)
//   - TFA_DATA_DIR: directory for the file store (default: ./data)
//   - TFA_REDIS_ADDR, TFA_REDIS_PASSWORD, TFA_REDIS_DB, TFA_REDIS_PREFIX
//   - TFA_SESSION_FLAG_TTL: Go duration (default: 0, no expiry)
//   - TFA_PG_*: see NewDatabaseConfigFromEnv
func NewStorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Persistence:    GetEnvOrDefault("TFA_PERSISTENCE", "memory"),
		DataDir:        GetEnvOrDefault("TFA_DATA_DIR", "./data"),
		RedisAddr:      GetEnvOrDefault("TFA_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  GetEnvOrDefault("TFA_REDIS_PASSWORD", ""),
		RedisDB:        GetEnvInt("TFA_REDIS_DB", 0),
		RedisPrefix:    GetEnvOrDefault("TFA_REDIS_PREFIX", ""),
		SessionFlagTTL: GetEnvDuration("TFA_SESSION_FLAG_TTL", 0),
		Database:       NewDatabaseConfigFromEnv(),
	}
}

func (c StorageConfig) Validate() error {
	return Validate(func() ValidationErrors {
		errs := CollectErrors(
			RequireOneOf("TFA_PERSISTENCE", c.Persistence, PersistenceTypes),
			RequireNonNegativeDuration("TFA_SESSION_FLAG_TTL", c.SessionFlagTTL),
		)
		switch c.Persistence {
		case "file":
			errs = append(errs, CollectErrors(RequireNonEmpty("TFA_DATA_DIR", c.DataDir))...)
		case "redis":
			errs = append(errs, CollectErrors(
				RequireNonEmpty("TFA_REDIS_ADDR", c.RedisAddr),
				RequireNonNegative("TFA_REDIS_DB", c.RedisDB),
			)...)
		case "postgres":
			errs = append(errs, CollectErrors(
				RequireNonEmpty("TFA_PG_HOST", c.Database.Host),
				RequireValidPort("TFA_PG_PORT", c.Database.Port),
				RequireNonEmpty("TFA_PG_DATABASE", c.Database.Database),
			)...)
		}
		return errs
	})
}
