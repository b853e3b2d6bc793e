package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/internal/config"
)

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	for _, env := range []string{"production", "development"} {
		log := Setup(&config.Config{Environment: env, LogLevel: slog.LevelWarn})
		assert.Same(t, log, slog.Default(), env)
		assert.False(t, log.Enabled(t.Context(), slog.LevelInfo), env)
		assert.True(t, log.Enabled(t.Context(), slog.LevelWarn), env)
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	log := WithError(WithAgent(WithWorld(base, "w-1"), "henry"), errors.New("no route"))
	log.Info("Command rejected")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "w-1", rec["world_id"])
	assert.Equal(t, "henry", rec["agent"])
	assert.Equal(t, "no route", rec["error"])
	assert.Equal(t, "Command rejected", rec["msg"])
}
