package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	logger *slog.Logger
	client redis.UniversalClient
}

func NewRedisDB(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis", "addrs", cfg.Addrs)

	return &RedisDB{
		logger: logger,
		client: client,
	}, nil
}

func (r *RedisDB) Client() redis.UniversalClient {
	return r.client
}

func (r *RedisDB) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	r.logger.Info("Closed Redis connection")
	return nil
}
