package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jwebster45206/npc-engine/internal/storage"
)

func main() {
	dataDir := os.Getenv("DATA_DIR")
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}
	if dataDir == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s <data dir>\n", os.Args[0])
		os.Exit(1)
	}

	// Only the file-backed storage methods are used; redis is never contacted.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := storage.NewRedisStorage("", dataDir, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("Validating %s...\n", dataDir)
	v := &WorldValidator{src: store}
	report, err := v.Validate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(report)
	fmt.Println("World data is valid!")
}
