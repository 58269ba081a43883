// Package redis holds the Redis backed idempotency store for payment submissions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/idealtransport/bol-ledger/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix   = "bol-ledger:idem:lock:"
	resultKeyPrefix = "bol-ledger:idem:result:"
)

// ErrInFlight is returned when another request holds the key
var ErrInFlight = errors.New("idempotency key is being processed")

// IdempotencyStore keeps a short lock while a keyed request runs and the
// stored result once it has succeeded
type IdempotencyStore struct {
	client    goredis.UniversalClient
	logger    *slog.Logger
	lockTTL   time.Duration
	resultTTL time.Duration
}

func NewIdempotencyStore(logger *slog.Logger, client goredis.UniversalClient, cfg *config.RedisConfig) *IdempotencyStore {
	return &IdempotencyStore{
		client:    client,
		logger:    logger,
		lockTTL:   cfg.LockTTL,
		resultTTL: cfg.IdempotencyTTL,
	}
}

// Begin returns the stored result for key when there is one. Otherwise it
// takes the lock and returns nil; the caller must then call Complete or
// Release.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) ([]byte, error) {
	stored, err := s.client.Get(ctx, resultKeyPrefix+key).Bytes()
	switch {
	case err == nil:
		s.logger.Debug("Replaying stored result", "idempotency_key", key)
		return stored, nil
	case !errors.Is(err, goredis.Nil):
		s.logger.Error("Failed to read idempotency result", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to read idempotency result: %w", err)
	}

	acquired, err := s.client.SetNX(ctx, lockKeyPrefix+key, time.Now().UTC().Format(time.RFC3339Nano), s.lockTTL).Result()
	if err != nil {
		s.logger.Error("Failed to acquire idempotency lock", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to acquire idempotency lock: %w", err)
	}
	if !acquired {
		return nil, ErrInFlight
	}
	return nil, nil
}

// Complete stores result under key and drops the lock in one round trip
func (s *IdempotencyStore) Complete(ctx context.Context, key string, result []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, resultKeyPrefix+key, result, s.resultTTL)
		pipe.Del(ctx, lockKeyPrefix+key)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to store idempotency result", "idempotency_key", key, "error", err)
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

// Release drops the lock without storing anything, so the key can be retried
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		s.logger.Warn("Failed to release idempotency lock", "idempotency_key", key, "error", err)
		return fmt.Errorf("failed to release idempotency lock: %w", err)
	}
	return nil
}
