package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-engine/pkg/queue"
)

// CommandQueue holds pending commands per world. The API pushes, the worker
// that owns the world drains between ticks.
type CommandQueue struct {
	client *Client
	logger *slog.Logger
}

func NewCommandQueue(client *Client, logger *slog.Logger) *CommandQueue {
	return &CommandQueue{
		client: client,
		logger: logger,
	}
}

func queueKey(worldID uuid.UUID) string {
	return fmt.Sprintf("world-commands:%s", worldID.String())
}

// Enqueue adds a command to the end of its world's queue
func (q *CommandQueue) Enqueue(ctx context.Context, cmd *queue.Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}
	data, err := cmd.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize command: %w", err)
	}

	key := queueKey(cmd.WorldID)
	if err := q.client.rdb.RPush(ctx, key, data).Err(); err != nil {
		q.logger.Error("Failed to enqueue command",
			"error", err,
			"world_id", cmd.WorldID.String(),
			"key", key)
		return fmt.Errorf("failed to enqueue command: %w", err)
	}

	q.logger.Debug("Enqueued command",
		"world_id", cmd.WorldID.String(),
		"command_id", cmd.CommandID,
		"type", cmd.Type)
	return nil
}

// Drain removes and returns every queued command for a world in FIFO order.
// Entries that fail to parse are logged and dropped.
func (q *CommandQueue) Drain(ctx context.Context, worldID uuid.UUID) ([]*queue.Command, error) {
	key := queueKey(worldID)

	var lrange *redis.StringSliceCmd
	_, err := q.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to drain commands: %w", err)
	}

	raw := lrange.Val()
	cmds := make([]*queue.Command, 0, len(raw))
	for _, item := range raw {
		cmd, err := queue.FromJSON([]byte(item))
		if err != nil {
			q.logger.Warn("Dropping malformed command", "world_id", worldID.String(), "error", err)
			continue
		}
		cmds = append(cmds, cmd)
	}
	if len(cmds) > 0 {
		q.logger.Debug("Drained commands", "world_id", worldID.String(), "count", len(cmds))
	}
	return cmds, nil
}

// Peek returns queued commands without removing them
func (q *CommandQueue) Peek(ctx context.Context, worldID uuid.UUID, limit int) ([]*queue.Command, error) {
	end := int64(limit - 1)
	if limit <= 0 {
		end = -1 // Get all
	}
	raw, err := q.client.rdb.LRange(ctx, queueKey(worldID), 0, end).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to peek commands: %w", err)
	}
	cmds := make([]*queue.Command, 0, len(raw))
	for _, item := range raw {
		if cmd, err := queue.FromJSON([]byte(item)); err == nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

// Clear removes all queued commands for a world
func (q *CommandQueue) Clear(ctx context.Context, worldID uuid.UUID) error {
	if err := q.client.rdb.Del(ctx, queueKey(worldID)).Err(); err != nil {
		return fmt.Errorf("failed to clear command queue: %w", err)
	}
	return nil
}

// Depth returns the number of commands queued for a world
func (q *CommandQueue) Depth(ctx context.Context, worldID uuid.UUID) (int, error) {
	count, err := q.client.rdb.LLen(ctx, queueKey(worldID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
