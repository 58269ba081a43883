package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/idealtransport/bol-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name              string
		logLevel          string
		expectedSlogLevel slog.Level
	}{
		{"DebugLevel", "debug", slog.LevelDebug},
		{"InfoLevel", "info", slog.LevelInfo},
		{"WarnLevel", "warn", slog.LevelWarn},
		{"WarningAlias", "WARNING", slog.LevelWarn},
		{"ErrorLevel", "error", slog.LevelError},
		{"DefaultToInfo", "unknown", slog.LevelInfo},
		{"EmptyToInfo", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Logging: config.LoggingConfig{Level: tc.logLevel},
			}

			logger := newLogger(cfg, &bytes.Buffer{})
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tc.expectedSlogLevel))
			if tc.expectedSlogLevel > slog.LevelDebug {
				assert.False(t, logger.Enabled(ctx, tc.expectedSlogLevel-4), "lower level should be filtered")
			}
		})
	}
}

func TestNewLogger_Attributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "bol-ledger", Env: "test"},
		Logging:     config.LoggingConfig{Level: "debug"},
	}

	logger := newLogger(cfg, &buf)
	buf.Reset()
	logger.Debug("Payment applied", "bol_id", "b-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "Payment applied", record["msg"])
	assert.Equal(t, "bol-ledger", record["app"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "b-1", record["bol_id"])
	assert.Contains(t, record, slog.SourceKey)
}
