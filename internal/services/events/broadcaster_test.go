package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/pkg/event"
)

func setup(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(rdb, logger), rdb
}

func subscribe(t *testing.T, rdb *redis.Client, worldID uuid.UUID) <-chan *redis.Message {
	t.Helper()
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel(worldID))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	return sub.Channel()
}

func next(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var e Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_PublishSimulation(t *testing.T) {
	b, rdb := setup(t)
	worldID := uuid.New()
	ch := subscribe(t, rdb, worldID)

	err := b.PublishSimulation(context.Background(), worldID, []event.Event{
		{Type: event.AgentTransitioned, AgentID: "henry", Scene: "kitchen", Minute: 541, Data: map[string]any{"from": "cafe"}},
		{Type: event.AgentArrived, AgentID: "henry", Scene: "kitchen", Minute: 541},
	})
	require.NoError(t, err)

	first := next(t, ch)
	assert.Equal(t, EventType(event.AgentTransitioned), first.Type)
	assert.Equal(t, worldID.String(), first.WorldID)
	assert.Equal(t, "henry", first.AgentID)
	assert.Equal(t, "kitchen", first.Scene)
	assert.Equal(t, 541, first.Minute)
	assert.Equal(t, "cafe", first.Data["from"])

	second := next(t, ch)
	assert.Equal(t, EventType(event.AgentArrived), second.Type)
}

func TestBroadcaster_PublishSimulationEmpty(t *testing.T) {
	b, _ := setup(t)
	assert.NoError(t, b.PublishSimulation(context.Background(), uuid.New(), nil))
}

func TestBroadcaster_CommandEvents(t *testing.T) {
	b, rdb := setup(t)
	worldID := uuid.New()
	ch := subscribe(t, rdb, worldID)
	ctx := context.Background()

	require.NoError(t, b.PublishCommandApplied(ctx, worldID, "cmd-1", "load_scene", 600))
	require.NoError(t, b.PublishCommandFailed(ctx, worldID, "cmd-2", "remove_npc", 600, "agent ghost not found"))
	require.NoError(t, b.PublishWorldSaved(ctx, worldID, 601, 3))

	applied := next(t, ch)
	assert.Equal(t, EventTypeCommandApplied, applied.Type)
	assert.Equal(t, "cmd-1", applied.CommandID)
	assert.Equal(t, "load_scene", applied.Data["type"])

	failed := next(t, ch)
	assert.Equal(t, EventTypeCommandFailed, failed.Type)
	assert.Equal(t, "agent ghost not found", failed.Data["error"])

	saved := next(t, ch)
	assert.Equal(t, EventTypeWorldSaved, saved.Type)
	assert.Equal(t, float64(3), saved.Data["npcs"])
}
