package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 20, cfg.TickRate)
	assert.Equal(t, 1.0, cfg.TimeScale)
	assert.Equal(t, 10*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, uuid.Nil, cfg.WorldID)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval())
}

func TestLoad_FromEnv(t *testing.T) {
	id := uuid.New()
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TICK_RATE", "10")
	t.Setenv("TIME_SCALE", "0.5")
	t.Setenv("START_TIME", "08:30")
	t.Setenv("SEED", "42")
	t.Setenv("WORLD_ID", id.String())
	t.Setenv("SNAPSHOT_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 10, cfg.TickRate)
	assert.Equal(t, 0.5, cfg.TimeScale)
	assert.Equal(t, "08:30", cfg.StartTime)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, id, cfg.WorldID)
	assert.Equal(t, time.Minute, cfg.SnapshotInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"world id", "WORLD_ID", "not-a-uuid", "invalid WORLD_ID"},
		{"tick rate", "TICK_RATE", "0", "TICK_RATE must be positive"},
		{"time scale", "TIME_SCALE", "-1", "TIME_SCALE must not be negative"},
		{"not a number", "TICK_RATE", "fast", "failed to parse environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
