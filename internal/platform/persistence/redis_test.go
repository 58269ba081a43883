package persistence

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisDB(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := &config.RedisConfig{
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     2,
	}

	t.Run("connects", func(t *testing.T) {
		srv := miniredis.RunT(t)
		cfg.Addrs = []string{srv.Addr()}

		db, err := NewRedisDB(context.Background(), logger, cfg)
		require.NoError(t, err)
		require.NoError(t, db.Client().Set(context.Background(), "k", "v", 0).Err())
		srv.CheckGet(t, "k", "v")
		assert.NoError(t, db.Close())
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := miniredis.RunT(t)
		cfg.Addrs = []string{srv.Addr()}
		srv.Close()

		_, err := NewRedisDB(context.Background(), logger, cfg)
		assert.ErrorContains(t, err, "failed to ping Redis")
	})
}
