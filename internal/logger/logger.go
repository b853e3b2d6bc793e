package logger

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/npc-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// WithWorld adds the world ID to logger context
func WithWorld(logger *slog.Logger, worldID string) *slog.Logger {
	return logger.With("world_id", worldID)
}

// WithAgent adds an NPC ID to logger context
func WithAgent(logger *slog.Logger, agentID string) *slog.Logger {
	return logger.With("agent", agentID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
