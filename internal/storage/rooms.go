package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
)

// Room operations (filesystem-backed)

// ListRooms returns the scene names found under rooms/, sorted by file name.
func (r *RedisStorage) ListRooms(ctx context.Context) ([]string, error) {
	roomsDir := filepath.Join(r.dataDir, "rooms")

	entries, err := os.ReadDir(roomsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		r.logger.Error("Failed to read rooms directory", "error", err)
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	var scenes []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			scenes = append(scenes, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return scenes, nil
}

func (r *RedisStorage) GetRoom(ctx context.Context, scene string) (*scenario.Room, error) {
	path := filepath.Join(r.dataDir, "rooms", scene+".json")

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("room not found: %s", scene)
		}
		return nil, fmt.Errorf("failed to read room file: %w", err)
	}

	room, err := scenario.ParseRoom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse room %s: %w", scene, err)
	}
	room.FileName = filepath.Base(path)
	if room.SceneName != scene {
		r.logger.Warn("Room scene_name does not match file name", "file", room.FileName, "scene_name", room.SceneName)
	}

	return room, nil
}

// GetMask loads the collision mask of room. Mask paths are relative to the
// data directory.
func (r *RedisStorage) GetMask(ctx context.Context, room *scenario.Room) (*mask.Mask, error) {
	rel := room.MaskPath()
	if rel == "" {
		return nil, fmt.Errorf("room %s has no background or mask", room.SceneName)
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dataDir, rel)
	}
	r.logger.Debug("Loading mask", "scene", room.SceneName, "full_path", path)

	m, err := mask.Load(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}
