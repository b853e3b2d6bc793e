package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
)

// ManifestFile is the world manifest under the data directory.
const ManifestFile = "world.yaml"

// NPC operations (filesystem-backed)

func (r *RedisStorage) GetManifest(ctx context.Context) (*scenario.Manifest, error) {
	path := filepath.Join(r.dataDir, ManifestFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			absPath, _ := filepath.Abs(path)
			return nil, fmt.Errorf("manifest not found (tried: %s)", absPath)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := scenario.ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

// GetSchedule loads npcs/<file>.
func (r *RedisStorage) GetSchedule(ctx context.Context, file string) (*schedule.Schedule, error) {
	path := filepath.Join(r.dataDir, "npcs", filepath.Clean("/" + file))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("schedule not found: %s", file)
		}
		return nil, fmt.Errorf("failed to read schedule file %s: %w", path, err)
	}

	s, err := schedule.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %s: %w", file, err)
	}
	return s, nil
}

func (r *RedisStorage) ListSchedules(ctx context.Context) ([]string, error) {
	npcsPath := filepath.Join(r.dataDir, "npcs")

	entries, err := os.ReadDir(npcsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read npcs directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}
