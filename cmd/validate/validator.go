package main

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
	"github.com/jwebster45206/npc-engine/pkg/schema"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
)

// Source is the file-backed part of storage.
type Source interface {
	ListRooms(ctx context.Context) ([]string, error)
	GetRoom(ctx context.Context, scene string) (*scenario.Room, error)
	GetMask(ctx context.Context, room *scenario.Room) (*mask.Mask, error)
	GetManifest(ctx context.Context) (*scenario.Manifest, error)
	GetSchedule(ctx context.Context, file string) (*schedule.Schedule, error)
	ListSchedules(ctx context.Context) ([]string, error)
	ReadDocument(ctx context.Context, rel string) ([]byte, error)
}

// WorldValidator checks a data directory: rooms against their masks,
// schedules and the manifest against the rooms, and scene connectivity.
// Unreachable scenes are warnings; everything else is an error.
type WorldValidator struct {
	src      Source
	errors   []string
	warnings []string

	rooms map[string]*scenario.Room
	masks map[string]*mask.Mask
}

// Validate returns a summary of the world, or an error listing every problem.
func (v *WorldValidator) Validate(ctx context.Context) (string, error) {
	v.errors, v.warnings = nil, nil
	v.rooms = make(map[string]*scenario.Room)
	v.masks = make(map[string]*mask.Mask)

	scenes, err := v.src.ListRooms(ctx)
	if err != nil {
		return "", err
	}
	if len(scenes) == 0 {
		return "", fmt.Errorf("no rooms found")
	}
	for _, name := range scenes {
		v.loadRoom(ctx, name)
	}
	graph := scenegraph.New()
	for _, name := range scenes {
		if room, ok := v.rooms[name]; ok {
			v.validateRoom(room)
			graph.Register(name, room.PortalMap())
		}
	}

	files, err := v.src.ListSchedules(ctx)
	if err != nil {
		return "", err
	}
	schedules := make(map[string]*schedule.Schedule, len(files))
	for _, file := range files {
		v.checkSchema(ctx, schema.Schedule, "npcs/"+file)
		s, err := v.src.GetSchedule(ctx, file)
		if err != nil {
			v.addError(fmt.Sprintf("schedule %s: %v", file, err))
			continue
		}
		schedules[file] = s
		v.validateSchedule(file, s)
	}

	manifest, err := v.src.GetManifest(ctx)
	if err != nil {
		v.addError(err.Error())
	} else {
		v.validateManifest(manifest, schedules)
	}

	for _, name := range scenes {
		if _, ok := v.rooms[name]; !ok {
			continue
		}
		reach := graph.Reachable(name)
		var missing []string
		for _, other := range scenes {
			if other != name && v.rooms[other] != nil && !slices.Contains(reach, other) {
				missing = append(missing, other)
			}
		}
		if len(missing) > 0 {
			v.warnings = append(v.warnings, fmt.Sprintf("  - scene %s cannot reach %s", name, strings.Join(missing, ", ")))
		}
	}

	if len(v.errors) > 0 {
		return "", fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}

	var b strings.Builder
	for _, name := range scenes {
		room := v.rooms[name]
		fmt.Fprintf(&b, "%s (%s): %d portals\n", scenario.DisplayName(name), name, len(room.Portals))
	}
	if manifest != nil {
		fmt.Fprintf(&b, "%d NPCs, %d props, %d schedules\n", len(manifest.NPCs), len(manifest.Props), len(files))
	}
	if len(v.warnings) > 0 {
		fmt.Fprintf(&b, "Warnings:\n%s\n", strings.Join(v.warnings, "\n"))
	}
	return b.String(), nil
}

func (v *WorldValidator) loadRoom(ctx context.Context, name string) {
	v.validateIDFormat("scene", name)
	v.checkSchema(ctx, schema.Room, "rooms/"+name+".json")
	room, err := v.src.GetRoom(ctx, name)
	if err != nil {
		v.addError(fmt.Sprintf("room %s: %v", name, err))
		return
	}
	if err := room.Validate(); err != nil {
		v.addError(err.Error())
		return
	}
	v.rooms[name] = room

	m, err := v.src.GetMask(ctx, room)
	if err != nil {
		v.addError(fmt.Sprintf("room %s: %v", name, err))
		return
	}
	v.masks[name] = m
}

func (v *WorldValidator) validateRoom(room *scenario.Room) {
	m := v.masks[room.SceneName]
	declared := make(map[int]bool, len(room.Portals))
	for _, p := range room.Portals {
		declared[p.ID] = true
		if m != nil {
			if _, ok := m.PortalBounds(p.ID); !ok {
				v.addError(fmt.Sprintf("room %s: portal %d is not in the mask (%d portal regions)", room.SceneName, p.ID, len(m.Portals())))
			}
		}
		if _, ok := v.rooms[p.ToScene]; !ok {
			v.addError(fmt.Sprintf("room %s: portal %d leads to unknown scene %s", room.SceneName, p.ID, p.ToScene))
			continue
		}
		if dest := v.masks[p.ToScene]; dest != nil && !dest.IsWalkable(int(p.Spawn[0]), int(p.Spawn[1])) {
			v.addError(fmt.Sprintf("room %s: portal %d spawn (%g,%g) is not walkable in %s", room.SceneName, p.ID, p.Spawn[0], p.Spawn[1], p.ToScene))
		}
	}
	if m == nil {
		return
	}
	for _, r := range m.Portals() {
		if !declared[r.ID] {
			v.warnings = append(v.warnings, fmt.Sprintf("  - room %s: mask portal %d has no destination", room.SceneName, r.ID))
		}
	}
}

func (v *WorldValidator) validateSchedule(file string, s *schedule.Schedule) {
	if p := s.InitialPosition; p != nil {
		v.checkPosition(fmt.Sprintf("schedule %s initial_position", file), p.Scene, p.X, p.Y)
	}
	for _, e := range s.Entries {
		where := fmt.Sprintf("schedule %s entry %s", file, e.Time)
		switch a := e.Action.(type) {
		case schedule.MoveTo:
			if a.Scene != "" {
				v.checkPosition(where, a.Scene, a.Target.X, a.Target.Y)
			}
		case schedule.NavigateToScene:
			if a.Target != nil {
				v.checkPosition(where, a.Scene, a.Target.X, a.Target.Y)
			} else if _, ok := v.rooms[a.Scene]; !ok {
				v.addError(fmt.Sprintf("%s: unknown scene %s", where, a.Scene))
			}
		}
	}
}

func (v *WorldValidator) validateManifest(m *scenario.Manifest, schedules map[string]*schedule.Schedule) {
	if m.ActiveScene != "" {
		if _, ok := v.rooms[m.ActiveScene]; !ok {
			v.addError(fmt.Sprintf("manifest active_scene %s is unknown", m.ActiveScene))
		}
	}
	for _, n := range m.NPCs {
		v.validateIDFormat("NPC ID", n.ID)
		where := fmt.Sprintf("npc %s", n.ID)
		if n.InitialScene != "" {
			if n.X != nil && n.Y != nil {
				v.checkPosition(where, n.InitialScene, *n.X, *n.Y)
			} else if _, ok := v.rooms[n.InitialScene]; !ok {
				v.addError(fmt.Sprintf("%s: unknown initial_scene %s", where, n.InitialScene))
			}
		}
		sched := schedules[n.ScheduleFile()]
		if file := n.ScheduleFile(); file != "" && sched == nil {
			if n.Schedule != "" {
				v.addError(fmt.Sprintf("%s: schedule %s not found", where, file))
			} else {
				v.warnings = append(v.warnings, fmt.Sprintf("  - %s has no schedule and will idle", where))
			}
		}
		if n.InitialScene == "" && (n.NoSchedule || sched == nil || sched.InitialPosition == nil) {
			v.addError(fmt.Sprintf("%s: no initial_scene and no schedule initial_position", where))
		}
		if stats := m.StatsFor(n); stats != nil {
			if _, err := stats.Build(n.ID); err != nil {
				v.addError(fmt.Sprintf("%s: %v", where, err))
			}
		}
	}
	for _, p := range m.Props {
		v.validateIDFormat("prop ID", p.ID)
		if _, ok := v.rooms[p.Scene]; !ok {
			v.addError(fmt.Sprintf("prop %s: unknown scene %s", p.ID, p.Scene))
		}
	}
}

// checkSchema lints the raw document. A document that cannot be read is
// left to the parsing step to report.
func (v *WorldValidator) checkSchema(ctx context.Context, kind schema.Kind, rel string) {
	data, err := v.src.ReadDocument(ctx, rel)
	if err != nil {
		return
	}
	if err := schema.Validate(kind, data); err != nil {
		v.addError(fmt.Sprintf("%s: %v", rel, err))
	}
}

// checkPosition reports a position that is in an unknown scene or off the
// walkable floor. Rooms without a mask accept any position.
func (v *WorldValidator) checkPosition(where, scene string, x, y float64) {
	if _, ok := v.rooms[scene]; !ok {
		v.addError(fmt.Sprintf("%s: unknown scene %s", where, scene))
		return
	}
	if m := v.masks[scene]; m != nil && !m.IsWalkable(int(x), int(y)) {
		v.addError(fmt.Sprintf("%s: (%g,%g) is not walkable in %s", where, x, y, scene))
	}
}

func (v *WorldValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *WorldValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
