package enrollment

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/gatekeeper/pkg/gate"
)

// Store is what every implementation in this package provides.
type Store interface {
	gate.EnrollmentStore
	gate.EnrollmentCreator
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// StoreConfig contains configuration for creating an enrollment store
type StoreConfig struct {
	// Pool is required for PostgreSQL stores
	Pool *pgxpool.Pool
	// Redis is required for Redis stores
	Redis       redis.UniversalClient
	RedisPrefix string
	// DataDir is required for file stores
	DataDir string
}

// NewStore creates an enrollment store based on the persistence type
func NewStore(persistenceType string, config StoreConfig) (Store, error) {
	switch persistenceType {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file store")
		}
		store, err := NewFileStore(config.DataDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres store")
		}
		return NewPostgresStore(config.Pool)
	case "redis":
		if config.Redis == nil {
			return nil, fmt.Errorf("redis client required for redis store")
		}
		return NewRedisStore(config.Redis, config.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: memory, file, postgres, redis)", persistenceType)
	}
}
