package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-engine/pkg/state"
)

// WorldStateKey is the redis key of a saved world.
func WorldStateKey(id uuid.UUID) string {
	return "worldstate:" + id.String()
}

// WorldState operations (Redis-backed)

func (r *RedisStorage) SaveWorldState(ctx context.Context, id uuid.UUID, ws *state.WorldState) error {
	ws.UpdatedAt = time.Now()

	data, err := json.Marshal(ws)
	if err != nil {
		r.logger.Error("Failed to marshal world state", "world_id", id, "error", err)
		return fmt.Errorf("failed to marshal world state: %w", err)
	}

	cmd := r.client.Set(ctx, WorldStateKey(id), string(data), worldStateTTL)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to save world state", "world_id", id, "error", err)
		return fmt.Errorf("failed to save world state: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	cmd := r.client.Get(ctx, WorldStateKey(id))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("World state not found", "world_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load world state", "world_id", id, "error", err)
		return nil, fmt.Errorf("failed to load world state: %w", err)
	}

	data := cmd.Val()
	if data == "" {
		return nil, nil
	}

	var ws state.WorldState
	if err := json.Unmarshal([]byte(data), &ws); err != nil {
		r.logger.Error("Failed to unmarshal world state", "world_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal world state: %w", err)
	}

	return &ws, nil
}

func (r *RedisStorage) DeleteWorldState(ctx context.Context, id uuid.UUID) error {
	cmd := r.client.Del(ctx, WorldStateKey(id))
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to delete world state", "world_id", id, "error", err)
		return fmt.Errorf("failed to delete world state: %w", err)
	}
	return nil
}
