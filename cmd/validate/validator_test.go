package main

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filestore "github.com/jwebster45206/npc-engine/internal/storage"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask/masktest"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
	"github.com/jwebster45206/npc-engine/pkg/storage"
)

func fptr(v float64) *float64 { return &v }

// village is a valid world: cafe and kitchen joined by a door, plus a
// cellar nothing leads to.
func village() *storage.MockStorage {
	s := storage.NewMockStorage()
	s.AddRoom(&scenario.Room{SceneName: "cafe", Portals: []scenario.Portal{{ID: 0, ToScene: "kitchen", Spawn: [2]float64{30, 50}}}},
		masktest.FromASCII(20,
			"##########",
			"#........#",
			"#........P",
			"#........#",
			"##########",
		))
	s.AddRoom(&scenario.Room{SceneName: "kitchen", Portals: []scenario.Portal{{ID: 0, ToScene: "cafe", Spawn: [2]float64{170, 50}}}},
		masktest.FromASCII(20,
			"##########",
			"#........#",
			"P........#",
			"#........#",
			"##########",
		))
	s.AddRoom(&scenario.Room{SceneName: "cellar"}, masktest.Open(100, 100))

	s.AddSchedule("henry.json", &schedule.Schedule{
		InitialPosition: &schedule.Position{Scene: "cafe", X: 50, Y: 50},
		Entries: []schedule.Entry{
			{Time: "08:00", Minute: 480, Action: schedule.Idle{}},
			{Time: "09:00", Minute: 540, Action: schedule.NavigateToScene{Scene: "kitchen", Target: &geom.Point{X: 90, Y: 50}}},
		},
	})
	s.SetManifest(&scenario.Manifest{
		Name:        "village",
		ActiveScene: "cafe",
		NPCs: []scenario.NPCDefinition{
			{ID: "henry", Type: "cook"},
			{ID: "mabel", Type: "baker", InitialScene: "kitchen", X: fptr(90), Y: fptr(50), NoSchedule: true},
		},
		Props: []scenario.PropDefinition{{ID: "crate", Scene: "cafe", X: 100, Y: 60, Width: 20, Height: 20}},
	})
	return s
}

func TestValidate_ValidWorld(t *testing.T) {
	v := &WorldValidator{src: village()}
	report, err := v.Validate(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report, "Cafe (cafe): 1 portals")
	assert.Contains(t, report, "2 NPCs, 1 props, 1 schedules")
	assert.Contains(t, report, "scene cafe cannot reach cellar")
	assert.Contains(t, report, "scene cellar cannot reach cafe, kitchen")
}

func TestValidate_SampleData(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	v := &WorldValidator{src: filestore.NewRedisStorage("", "../../data", logger)}

	report, err := v.Validate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report, "Street (street): 1 portals")
	assert.Contains(t, report, "Cafe (cafe): 2 portals")
	assert.Contains(t, report, "4 NPCs, 2 props, 2 schedules")
	assert.NotContains(t, report, "cannot reach")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *storage.MockStorage)
		wantErr string
	}{
		{
			name: "portal to unknown scene",
			mutate: func(s *storage.MockStorage) {
				s.AddRoom(&scenario.Room{SceneName: "cellar", Portals: []scenario.Portal{{ID: 0, ToScene: "attic"}}}, masktest.Open(100, 100))
			},
			wantErr: "leads to unknown scene attic",
		},
		{
			name: "portal missing from mask",
			mutate: func(s *storage.MockStorage) {
				s.AddRoom(&scenario.Room{SceneName: "cellar", Portals: []scenario.Portal{{ID: 0, ToScene: "cafe", Spawn: [2]float64{50, 50}}}}, masktest.Open(100, 100))
			},
			wantErr: "portal 0 is not in the mask",
		},
		{
			name: "spawn on a wall",
			mutate: func(s *storage.MockStorage) {
				s.AddRoom(&scenario.Room{SceneName: "kitchen", Portals: []scenario.Portal{{ID: 0, ToScene: "cafe", Spawn: [2]float64{5, 5}}}},
					masktest.FromASCII(20,
						"##########",
						"#........#",
						"P........#",
						"#........#",
						"##########",
					))
			},
			wantErr: "spawn (5,5) is not walkable in cafe",
		},
		{
			name: "room without mask",
			mutate: func(s *storage.MockStorage) {
				s.AddRoom(&scenario.Room{SceneName: "attic"}, nil)
			},
			wantErr: "room attic: mask not found",
		},
		{
			name: "bad scene id",
			mutate: func(s *storage.MockStorage) {
				s.AddRoom(&scenario.Room{SceneName: "Attic"}, masktest.Open(10, 10))
			},
			wantErr: "scene 'Attic' should be lowercase snake_case",
		},
		{
			name: "schedule into unknown scene",
			mutate: func(s *storage.MockStorage) {
				s.AddSchedule("rex.json", &schedule.Schedule{Entries: []schedule.Entry{
					{Time: "10:00", Minute: 600, Action: schedule.NavigateToScene{Scene: "garden"}},
				}})
			},
			wantErr: "schedule rex.json entry 10:00: unknown scene garden",
		},
		{
			name: "npc off the floor",
			mutate: func(s *storage.MockStorage) {
				s.SetManifest(&scenario.Manifest{NPCs: []scenario.NPCDefinition{
					{ID: "mabel", InitialScene: "kitchen", X: fptr(0), Y: fptr(0), NoSchedule: true},
				}})
			},
			wantErr: "npc mabel: (0,0) is not walkable in kitchen",
		},
		{
			name: "npc without a place to start",
			mutate: func(s *storage.MockStorage) {
				s.SetManifest(&scenario.Manifest{NPCs: []scenario.NPCDefinition{{ID: "ghost", NoSchedule: true}}})
			},
			wantErr: "npc ghost: no initial_scene",
		},
		{
			name: "missing named schedule",
			mutate: func(s *storage.MockStorage) {
				s.SetManifest(&scenario.Manifest{NPCs: []scenario.NPCDefinition{
					{ID: "rex", InitialScene: "cafe", Schedule: "dog.json"},
				}})
			},
			wantErr: "npc rex: schedule dog.json not found",
		},
		{
			name: "room document fails schema",
			mutate: func(s *storage.MockStorage) {
				s.SetDocument("rooms/cafe.json", []byte(`{"scene_name":"cafe","portals":[{"id":0,"to_scene":"kitchen"}]}`))
			},
			wantErr: "rooms/cafe.json: room document does not match schema",
		},
		{
			name: "schedule document fails schema",
			mutate: func(s *storage.MockStorage) {
				s.SetDocument("npcs/henry.json", []byte(`{"schedule":[{"time":"8am","action":"idle"}]}`))
			},
			wantErr: "npcs/henry.json: schedule document does not match schema",
		},
		{
			name: "prop in unknown scene",
			mutate: func(s *storage.MockStorage) {
				s.SetManifest(&scenario.Manifest{Props: []scenario.PropDefinition{{ID: "crate", Scene: "attic"}}})
			},
			wantErr: "prop crate: unknown scene attic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := village()
			tt.mutate(s)
			v := &WorldValidator{src: s}
			_, err := v.Validate(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
