package sessionflag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DEFAULT_REDIS_PREFIX = "tfa:session"

var errRedisBackend = errors.New("session flag redis backend unavailable")

// RedisFlag stores one key per verified session. A zero TTL never expires.
type RedisFlag struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisFlag(client redis.UniversalClient, prefix string, ttl time.Duration) (*RedisFlag, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ttl cannot be negative")
	}
	if prefix == "" {
		prefix = DEFAULT_REDIS_PREFIX
	}
	return &RedisFlag{redis: client, prefix: prefix, ttl: ttl}, nil
}

func (f *RedisFlag) key(sessionID string) string {
	return f.prefix + ":" + sessionID
}

func (f *RedisFlag) Get(ctx context.Context, sessionID string) (bool, error) {
	n, err := f.redis.Exists(ctx, f.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedisBackend, err)
	}
	return n > 0, nil
}

func (f *RedisFlag) Set(ctx context.Context, sessionID string) error {
	if err := f.redis.Set(ctx, f.key(sessionID), "1", f.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisBackend, err)
	}
	return nil
}

func (f *RedisFlag) Clear(ctx context.Context, sessionID string) error {
	if err := f.redis.Del(ctx, f.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisBackend, err)
	}
	return nil
}
