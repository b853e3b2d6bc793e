package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

type Config struct {
	Port         string `env:"PORT"        envDefault:"8080"`
	Environment  string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelName string `env:"LOG_LEVEL"   envDefault:"info"`
	LogLevel     slog.Level

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	DataDir  string `env:"DATA_DIR"  envDefault:"./data"`

	// Simulation
	TickRate    int     `env:"TICK_RATE"    envDefault:"20"` // ticks per second
	TimeScale   float64 `env:"TIME_SCALE"   envDefault:"1"`  // game minutes per real second
	StartTime   string  `env:"START_TIME"`                   // "HH:MM", overrides world.yaml
	Seed        uint64  `env:"SEED"`                         // 0 picks a random seed
	ActiveScene string  `env:"ACTIVE_SCENE"`                 // overrides world.yaml

	// Worker
	WorldIDRaw       string        `env:"WORLD_ID"`
	WorldID          uuid.UUID     `env:"-"`
	WorkerID         string        `env:"WORKER_ID"`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"10s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)

	if cfg.WorldIDRaw != "" {
		id, err := uuid.Parse(cfg.WorldIDRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid WORLD_ID %q: %w", cfg.WorldIDRaw, err)
		}
		cfg.WorldID = id
	}
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("TICK_RATE must be positive, got %d", cfg.TickRate)
	}
	if cfg.TimeScale < 0 {
		return nil, fmt.Errorf("TIME_SCALE must not be negative, got %g", cfg.TimeScale)
	}
	return &cfg, nil
}

// TickInterval is the wall-clock duration of one simulation tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
