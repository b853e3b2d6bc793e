package world

import (
	"context"
	"fmt"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/behavior"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/npc"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
)

// Source supplies the static world documents.
type Source interface {
	ListRooms(ctx context.Context) ([]string, error)
	GetRoom(ctx context.Context, scene string) (*scenario.Room, error)
	GetMask(ctx context.Context, room *scenario.Room) (*mask.Mask, error)
	GetManifest(ctx context.Context) (*scenario.Manifest, error)
	GetSchedule(ctx context.Context, file string) (*schedule.Schedule, error)
}

// Build creates a world from src. Broken rooms, schedules and NPC entries
// are logged and skipped or replaced with fallbacks; only an unreadable
// room list or manifest is an error.
func Build(ctx context.Context, src Source, opts Options) (*Registry, error) {
	manifest, err := src.GetManifest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if opts.StartTime == "" {
		opts.StartTime = manifest.StartTime
	}
	r := New(opts)

	scenes, err := src.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	for _, name := range scenes {
		room, err := src.GetRoom(ctx, name)
		if err != nil {
			r.log.Warn("Failed to load room, skipping", "scene", name, "error", err)
			continue
		}
		m, err := src.GetMask(ctx, room)
		if err != nil {
			r.log.Warn("Failed to load mask, scene has no collision data", "scene", room.SceneName, "error", err)
			m = nil
		}
		r.AddScene(room, m)
	}

	for _, p := range manifest.Props {
		if err := r.AddProp(Prop{ID: p.ID, Scene: p.Scene, Bounds: p.Bounds(), PickedUp: p.PickedUp}); err != nil {
			r.log.Warn("Failed to place prop", "prop", p.ID, "error", err)
		}
	}

	for _, d := range manifest.NPCs {
		def, err := r.definition(ctx, src, d, manifest.StatsFor(d))
		if err != nil {
			r.log.Warn("Skipping NPC", "agent", d.ID, "error", err)
			continue
		}
		if _, err := r.Spawn(def); err != nil {
			r.log.Warn("Failed to spawn NPC", "agent", d.ID, "error", err)
		}
	}

	if manifest.ActiveScene != "" {
		if err := r.LoadScene(manifest.ActiveScene); err != nil {
			r.log.Warn("Manifest active scene unknown", "scene", manifest.ActiveScene, "error", err)
		}
	}
	r.log.Info("World built", "world_id", r.ID(), "scenes", len(r.Scenes()), "agents", len(r.order), "props", len(r.propOrder))
	return r, nil
}

func (r *Registry) definition(ctx context.Context, src Source, d scenario.NPCDefinition, stats *actor.StatBlock) (npc.Definition, error) {
	def := npc.Definition{ID: d.ID, Type: d.Type, Scene: d.InitialScene, Speed: d.Speed}

	cfg, err := behavior.Preset(d.BehaviorPreset())
	if err != nil {
		r.log.Warn("Unknown behavior preset, using default", "agent", d.ID, "preset", d.BehaviorPreset())
	}
	def.Behavior = cfg

	if file := d.ScheduleFile(); file != "" {
		s, err := src.GetSchedule(ctx, file)
		if err != nil {
			r.log.Warn("Failed to load schedule, NPC will idle", "agent", d.ID, "file", file, "error", err)
			s = schedule.Fallback()
		}
		def.Schedule = s
	}

	if d.X != nil && d.Y != nil {
		def.Feet = geom.Pt(*d.X, *d.Y)
	} else if def.Schedule != nil && def.Schedule.InitialPosition != nil {
		p := def.Schedule.InitialPosition
		def.Feet = geom.Pt(p.X, p.Y)
		if def.Scene == "" {
			def.Scene = p.Scene
		}
	}
	if def.Scene == "" {
		return npc.Definition{}, fmt.Errorf("no initial scene")
	}

	if d.FeetOffset != nil || stats != nil {
		caps := &npc.Capabilities{}
		if d.FeetOffset != nil {
			off := *d.FeetOffset
			caps.FeetOffset = &off
		}
		if stats != nil {
			a, err := stats.Build(d.ID)
			if err != nil {
				r.log.Warn("Invalid stat block, ignoring", "agent", d.ID, "error", err)
			} else {
				caps.Stats = a
			}
		}
		def.Caps = caps
	}
	return def, nil
}
