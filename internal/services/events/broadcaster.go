package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-engine/pkg/event"
)

// EventType represents the type of event being broadcast. Simulation events
// keep their own type names; these are the worker's own.
type EventType string

const (
	EventTypeCommandApplied EventType = "command.applied"
	EventTypeCommandFailed  EventType = "command.failed"
	EventTypeWorldSaved     EventType = "world.saved"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	WorldID   string         `json:"world_id"`
	CommandID string         `json:"command_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Scene     string         `json:"scene,omitempty"`
	Minute    int            `json:"minute"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying a world's events
func Channel(worldID uuid.UUID) string {
	return fmt.Sprintf("world-events:%s", worldID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishSimulation publishes a batch of drained simulation events in one round trip
func (b *Broadcaster) PublishSimulation(ctx context.Context, worldID uuid.UUID, evs []event.Event) error {
	if len(evs) == 0 {
		return nil
	}
	channel := Channel(worldID)
	pipe := b.redisClient.Pipeline()
	for _, e := range evs {
		data, err := json.Marshal(Event{
			Type:    EventType(e.Type),
			WorldID: worldID.String(),
			AgentID: e.AgentID,
			Scene:   e.Scene,
			Minute:  e.Minute,
			Data:    e.Data,
		})
		if err != nil {
			b.logger.Error("Failed to marshal event", "error", err, "event_type", e.Type)
			continue
		}
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Error("Failed to publish events", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish events: %w", err)
	}
	b.logger.Debug("Events published", "channel", channel, "count", len(evs))
	return nil
}

// PublishCommandApplied publishes a command.applied event
func (b *Broadcaster) PublishCommandApplied(ctx context.Context, worldID uuid.UUID, commandID, commandType string, minute int) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:      EventTypeCommandApplied,
		WorldID:   worldID.String(),
		CommandID: commandID,
		Minute:    minute,
		Data:      map[string]any{"type": commandType},
	})
}

// PublishCommandFailed publishes a command.failed event
func (b *Broadcaster) PublishCommandFailed(ctx context.Context, worldID uuid.UUID, commandID, commandType string, minute int, errorMsg string) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:      EventTypeCommandFailed,
		WorldID:   worldID.String(),
		CommandID: commandID,
		Minute:    minute,
		Data: map[string]any{
			"type":  commandType,
			"error": errorMsg,
		},
	})
}

// PublishWorldSaved publishes a world.saved event
func (b *Broadcaster) PublishWorldSaved(ctx context.Context, worldID uuid.UUID, minute int, npcs int) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:    EventTypeWorldSaved,
		WorldID: worldID.String(),
		Minute:  minute,
		Data:    map[string]any{"npcs": npcs},
	})
}

// publishToWorld publishes an event to the world-specific channel
func (b *Broadcaster) publishToWorld(ctx context.Context, worldID uuid.UUID, e Event) error {
	channel := Channel(worldID)

	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", e)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", e.Type,
		"command_id", e.CommandID,
	)

	return nil
}
