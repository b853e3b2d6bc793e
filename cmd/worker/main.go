package main

import (
	"context"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/internal/config"
	"github.com/jwebster45206/npc-engine/internal/logger"
	"github.com/jwebster45206/npc-engine/internal/services/queue"
	"github.com/jwebster45206/npc-engine/internal/storage"
	"github.com/jwebster45206/npc-engine/internal/worker"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting NPC Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"data_dir", cfg.DataDir,
		"tick_rate", cfg.TickRate)

	// Initialize storage service
	storageService := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := storageService.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := storageService.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	worldID := cfg.WorldID
	if worldID == uuid.Nil {
		worldID = uuid.New()
		log.Warn("WORLD_ID not set, starting a new world", "world_id", worldID.String())
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	buildCtx, buildCancel := context.WithTimeout(context.Background(), time.Minute)
	defer buildCancel()

	w, err := world.Build(buildCtx, storageService, world.Options{
		ID:        worldID,
		Seed:      seed,
		StartTime: cfg.StartTime,
		TimeScale: cfg.TimeScale,
		Logger:    log,
	})
	if err != nil {
		log.Error("Failed to build world", "error", err)
		os.Exit(1)
	}

	saved, err := storageService.LoadWorldState(buildCtx, worldID)
	if err != nil {
		log.Error("Failed to load saved world", "error", err)
		os.Exit(1)
	}
	if saved != nil {
		w.Restore(saved)
		log.Info("Resumed saved world", "minute", saved.Minute, "npcs", len(saved.NPCs))
	}
	if cfg.ActiveScene != "" {
		if err := w.LoadScene(cfg.ActiveScene); err != nil {
			log.Warn("ACTIVE_SCENE unknown", "scene", cfg.ActiveScene, "error", err)
		}
	}

	// Commands share the storage connection
	commands := queue.NewCommandQueue(queue.NewClientFromRedis(storageService.Client(), log), log)
	log.Info("Queue service initialized successfully")

	wk := worker.New(w, storageService, commands, storageService.Client(), log, cfg.WorkerID, worker.Options{
		TickInterval:     cfg.TickInterval(),
		SnapshotInterval: cfg.SnapshotInterval,
	})

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- wk.Start()
	}()

	log.Info("Worker started", "world_id", worldID.String(), "worker_id", wk.ID(), "seed", seed)

	select {
	case err := <-done:
		if err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
		return
	case <-quit:
		log.Info("Worker shutdown signal received")
	}

	wk.Stop()

	// Give the worker time to save and release its lock
	select {
	case err := <-done:
		if err != nil {
			log.Error("Worker error", "error", err)
		}
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
