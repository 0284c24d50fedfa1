// Package sessionflag provides gate.SessionFlag implementations. Both also
// offer Clear so logout handlers can drop the flag with the session.
package sessionflag

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/gatekeeper/pkg/gate"
)

// Flag is a gate.SessionFlag that can also be cleared.
type Flag interface {
	gate.SessionFlag
	Clear(ctx context.Context, sessionID string) error
}

var (
	_ Flag = (*MemoryFlag)(nil)
	_ Flag = (*RedisFlag)(nil)
)

// FlagConfig contains configuration for creating a session flag
type FlagConfig struct {
	// Redis is required for the redis backend
	Redis       redis.UniversalClient
	RedisPrefix string
	TTL         time.Duration
}

// NewFlag creates a session flag for the given backend. Anything but
// "redis" keeps flags in memory.
func NewFlag(backend string, config FlagConfig) (Flag, error) {
	switch backend {
	case "redis":
		if config.Redis == nil {
			return nil, fmt.Errorf("redis client required for redis session flag")
		}
		return NewRedisFlag(config.Redis, config.RedisPrefix, config.TTL)
	case "", "memory", "file", "postgres", "postgresql":
		return NewMemoryFlag(WithTTL(config.TTL)), nil
	default:
		return nil, fmt.Errorf("unsupported session flag backend: %s (supported: memory, redis)", backend)
	}
}
