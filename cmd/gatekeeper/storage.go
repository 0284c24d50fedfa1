package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/gatekeeper/pkg/config"
	"github.com/tendant/gatekeeper/pkg/enrollment"
	"github.com/tendant/gatekeeper/pkg/sessionflag"
)

// Storage bundles the gate capabilities with the connections behind them.
type Storage struct {
	Store enrollment.Store
	Flag  sessionflag.Flag

	pool  *pgxpool.Pool
	redis *redis.Client
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{}
	storeCfg := enrollment.StoreConfig{
		DataDir:     cfg.DataDir,
		RedisPrefix: cfg.RedisPrefix,
	}
	flagCfg := sessionflag.FlagConfig{TTL: cfg.SessionFlagTTL}

	switch cfg.Persistence {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.pool = pool
		if err := pool.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		slog.Info("Database connected",
			"host", cfg.Database.Host,
			"database", cfg.Database.Database,
			"schema", cfg.Database.Schema)
		storeCfg.Pool = pool

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		slog.Info("Redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		storeCfg.Redis = client
		flagCfg.Redis = client
	}

	store, err := enrollment.NewStore(cfg.Persistence, storeCfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	if pg, ok := store.(*enrollment.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	flag, err := sessionflag.NewFlag(cfg.Persistence, flagCfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Store = store
	s.Flag = flag
	return s, nil
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
}
