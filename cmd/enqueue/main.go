package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	svcqueue "github.com/jwebster45206/npc-engine/internal/services/queue"
	"github.com/jwebster45206/npc-engine/pkg/queue"
)

func main() {
	redisURL := flag.String("redis", getEnv("REDIS_URL", "redis://localhost:6379"), "redis URL")
	worldFlag := flag.String("world", os.Getenv("WORLD_ID"), "world id")
	npcID := flag.String("npc", "", "npc id (force_travel, send_npc, remove_npc)")
	target := flag.String("target", "", "destination scene (send_npc)")
	at := flag.String("at", "", "destination feet position x,y (send_npc)")
	scene := flag.String("scene", "", "scene (load_scene, unload_scene)")
	prop := flag.String("prop", "", "prop id (pick_up_prop, drop_prop)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command type>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	worldID, err := uuid.Parse(*worldFlag)
	if err != nil {
		log.Fatalf("Invalid world id %q: %v", *worldFlag, err)
	}

	cmd := queue.NewCommand(worldID, queue.CommandType(flag.Arg(0)))
	cmd.NPCID = *npcID
	cmd.TargetScene = *target
	cmd.Scene = *scene
	cmd.PropID = *prop
	if *at != "" {
		x, y, err := parsePoint(*at)
		if err != nil {
			log.Fatal(err)
		}
		cmd.X, cmd.Y = &x, &y
	}
	if err := cmd.Validate(); err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := svcqueue.NewClient(*redisURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer func() {
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	commands := svcqueue.NewCommandQueue(client, logger)
	if err := commands.Enqueue(ctx, cmd); err != nil {
		log.Fatal(err)
	}

	depth, err := commands.Depth(ctx, worldID)
	if err != nil {
		log.Fatal("Failed to get queue depth: ", err)
	}

	fmt.Printf("Enqueued %s command %s\n", cmd.Type, cmd.CommandID)
	fmt.Printf("Queue depth for world %s: %d\n", worldID, depth)
}

func parsePoint(s string) (float64, float64, error) {
	xs, ys, _ := strings.Cut(s, ",")
	x, errX := strconv.ParseFloat(xs, 64)
	y, errY := strconv.ParseFloat(ys, 64)
	if errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("invalid position %q, expected x,y", s)
	}
	return x, y, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
