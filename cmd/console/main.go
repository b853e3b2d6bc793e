package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/npc-engine/internal/config"
	"github.com/jwebster45206/npc-engine/internal/storage"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

// The console runs a world in process and draws a debug overlay of every
// agent. Nothing is saved; redis is never contacted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) > 1 {
		cfg.DataDir = os.Args[1]
	}

	// Logs would tear the alt screen, so they go to a file when asked for.
	var logOut io.Writer = io.Discard
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = f.Close()
		}()
		logOut = f
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := storage.NewRedisStorage("", cfg.DataDir, log)
	w, err := world.Build(ctx, store, world.Options{
		ID:        cfg.WorldID,
		Seed:      seed,
		StartTime: cfg.StartTime,
		TimeScale: cfg.TimeScale,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build world from %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}
	if cfg.ActiveScene != "" {
		if err := w.LoadScene(cfg.ActiveScene); err != nil {
			fmt.Fprintf(os.Stderr, "Unknown scene %s: %v\n", cfg.ActiveScene, err)
			os.Exit(1)
		}
	}
	if w.ActiveScene() == "" {
		if scenes := w.Scenes(); len(scenes) > 0 {
			_ = w.LoadScene(scenes[0])
		}
	}

	p := tea.NewProgram(NewConsoleUI(w, cfg.TickInterval(), seed, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
