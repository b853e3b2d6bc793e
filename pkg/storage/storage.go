package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
	"github.com/jwebster45206/npc-engine/pkg/state"
)

// Storage defines a unified interface for all storage operations
// This interface combines world state persistence (Redis) with world data loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// WorldState operations (Redis-backed)
	SaveWorldState(ctx context.Context, id uuid.UUID, ws *state.WorldState) error
	LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error)
	DeleteWorldState(ctx context.Context, id uuid.UUID) error

	// Room operations (filesystem-backed)
	ListRooms(ctx context.Context) ([]string, error)
	GetRoom(ctx context.Context, scene string) (*scenario.Room, error)
	GetMask(ctx context.Context, room *scenario.Room) (*mask.Mask, error)

	// NPC operations (filesystem-backed)
	GetManifest(ctx context.Context) (*scenario.Manifest, error)
	GetSchedule(ctx context.Context, file string) (*schedule.Schedule, error)
	ListSchedules(ctx context.Context) ([]string, error)

	// ReadDocument returns a raw data file by its path under the data directory.
	ReadDocument(ctx context.Context, rel string) ([]byte, error)
}
