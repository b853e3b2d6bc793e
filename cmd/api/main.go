package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/npc-engine/internal/config"
	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/internal/logger"
	"github.com/jwebster45206/npc-engine/internal/services/queue"
	"github.com/jwebster45206/npc-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting NPC Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	storageService := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := storageService.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	commands := queue.NewCommandQueue(queue.NewClientFromRedis(storageService.Client(), log), log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(storageService, log)
	mux.Handle("/health", healthHandler)

	worldHandler := handlers.NewWorldHandler(log, storageService, commands)
	mux.Handle("/v1/worlds", worldHandler)
	mux.Handle("/v1/worlds/", worldHandler)

	sceneHandler := handlers.NewSceneHandler(log, storageService)
	mux.Handle("/v1/scenes", sceneHandler)
	mux.Handle("/v1/scenes/", sceneHandler)

	eventsHandler := handlers.NewEventsHandler(storageService.Client(), log)
	mux.Handle("/v1/events/worlds/", eventsHandler)

	socketHandler := handlers.NewSocketHandler(storageService.Client(), storageService, commands, log)
	mux.Handle("/v1/ws/worlds/", socketHandler)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - the events endpoint holds connections open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := storageService.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
