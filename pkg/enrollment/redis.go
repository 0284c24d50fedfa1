package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/gatekeeper/pkg/gate"
)

const DEFAULT_REDIS_PREFIX = "tfa:enrollment"

var errRedisBackend = errors.New("enrollment redis backend unavailable")

// RedisStore keeps each enrollment as a JSON value under prefix:identity.
// Keys never expire.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DEFAULT_REDIS_PREFIX
	}
	return &RedisStore{redis: client, prefix: prefix}, nil
}

func (s *RedisStore) key(identity string) string {
	return s.prefix + ":" + identity
}

func (s *RedisStore) Load(ctx context.Context, identity string) (*gate.EnrollmentRecord, error) {
	return s.get(ctx, s.redis, s.key(identity))
}

func (s *RedisStore) Save(ctx context.Context, identity string, record gate.EnrollmentRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollment: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(identity), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisBackend, err)
	}
	return nil
}

// CreateIfAbsent uses SETNX, falling back to an optimistic transaction when
// the existing value carries no secret.
func (s *RedisStore) CreateIfAbsent(ctx context.Context, identity string, record gate.EnrollmentRecord) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal enrollment: %w", err)
	}

	key := s.key(identity)
	created, err := s.redis.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedisBackend, err)
	}
	if created {
		return true, nil
	}

	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if existing.HasSecret() {
			created = false
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		created = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Someone else wrote the key between WATCH and EXEC.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedisBackend, err)
	}
	return created, nil
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable, key string) (*gate.EnrollmentRecord, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", errRedisBackend, err)
	}

	var record gate.EnrollmentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enrollment: %w", err)
	}
	return &record, nil
}
