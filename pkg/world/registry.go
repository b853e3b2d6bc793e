// Package world owns every agent and prop independently of which scene is
// loaded, and steps them all once per tick.
package world

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/event"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/npc"
	"github.com/jwebster45206/npc-engine/pkg/pathfind"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
)

const (
	spawnSearchRadius = 100.0
	spawnSearchStep   = 5.0
)

// Options configure a registry.
type Options struct {
	ID         uuid.UUID // generated when zero
	Seed       uint64
	StartTime  string  // "HH:MM"
	TimeScale  float64 // game minutes per real second
	Pathfinder *pathfind.Pathfinder
	Logger     *slog.Logger
}

// Prop is a placed object that blocks movement until picked up.
type Prop struct {
	ID       string
	Scene    string
	Bounds   geom.Rect
	PickedUp bool
}

// Registry is the single source of truth for where every agent and prop
// is. It is not safe for concurrent use; callers serialise access.
type Registry struct {
	opts      Options
	log       *slog.Logger
	id        uuid.UUID
	createdAt time.Time

	clock *clock.Clock
	graph *scenegraph.Graph
	masks map[string]*mask.Mask
	rooms map[string]*scenario.Room

	agents    map[string]*npc.Agent
	order     []string
	locations map[string]string

	props     map[string]*Prop
	propOrder []string

	loaded map[string]bool
	live   map[string][]*npc.Agent
	active string

	events []event.Event
}

// New returns an empty registry.
func New(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Pathfinder == nil {
		opts.Pathfinder = pathfind.New(pathfind.DefaultCellSize)
	}
	r := &Registry{opts: opts, log: opts.Logger}
	r.Reset()
	return r
}

// Reset drops every scene, agent and prop and restarts the clock.
func (r *Registry) Reset() {
	r.id = r.opts.ID
	if r.id == uuid.Nil {
		r.id = uuid.New()
	}
	r.createdAt = time.Now()

	start := 0
	if r.opts.StartTime != "" {
		m, err := clock.Parse(r.opts.StartTime)
		if err != nil {
			r.log.Warn("Invalid start time, starting at midnight", "start_time", r.opts.StartTime, "error", err)
		} else {
			start = m
		}
	}
	r.clock = clock.New(start, r.opts.TimeScale)
	r.graph = scenegraph.New()
	r.masks = make(map[string]*mask.Mask)
	r.rooms = make(map[string]*scenario.Room)
	r.agents = make(map[string]*npc.Agent)
	r.order = nil
	r.locations = make(map[string]string)
	r.props = make(map[string]*Prop)
	r.propOrder = nil
	r.loaded = make(map[string]bool)
	r.live = make(map[string][]*npc.Agent)
	r.active = ""
	r.events = nil
}

func (r *Registry) ID() uuid.UUID       { return r.id }
func (r *Registry) Clock() *clock.Clock { return r.clock }

// Minute is the current game time of day.
func (r *Registry) Minute() int { return r.clock.Minute() }

func (r *Registry) Graph() *scenegraph.Graph { return r.graph }

// AddScene registers a room's portals and caches its mask. m may be nil for
// a scene without collision data; agents there cannot pathfind.
func (r *Registry) AddScene(room *scenario.Room, m *mask.Mask) {
	r.rooms[room.SceneName] = room
	r.graph.Register(room.SceneName, room.PortalMap())
	if m != nil {
		r.masks[room.SceneName] = m
		for _, p := range room.Portals {
			if _, ok := m.PortalBounds(p.ID); !ok {
				r.log.Warn("Portal configured without a mask region", "scene", room.SceneName, "portal", p.ID)
			}
		}
	}
}

// Room returns the document a scene was registered from.
func (r *Registry) Room(scene string) (*scenario.Room, bool) {
	room, ok := r.rooms[scene]
	return room, ok
}

// Scenes lists registered scenes in registration order.
func (r *Registry) Scenes() []string {
	return r.graph.Scenes()
}

func (r *Registry) Mask(scene string) *mask.Mask {
	return r.masks[scene]
}

// Spawn creates an agent from def at its initial scene and position.
func (r *Registry) Spawn(def npc.Definition) (*npc.Agent, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if _, exists := r.agents[def.ID]; exists {
		return nil, fmt.Errorf("agent %s already exists", def.ID)
	}
	if !r.graph.Has(def.Scene) {
		return nil, fmt.Errorf("agent %s: unknown scene %q", def.ID, def.Scene)
	}

	a := npc.New(def, r, r.agentRand(def.ID), r.opts.Pathfinder, r.log)
	r.agents[def.ID] = a
	r.order = append(r.order, def.ID)
	r.locations[def.ID] = def.Scene
	a.SetFeet(r.validSpawn(def.ID, def.Scene, def.Feet))
	if r.loaded[def.Scene] {
		r.attach(a, def.Scene)
	}
	r.Emit(event.Event{
		Type:    event.AgentSpawned,
		AgentID: def.ID,
		Scene:   def.Scene,
		Minute:  r.Minute(),
		Data:    map[string]any{"x": a.Feet().X, "y": a.Feet().Y},
	})
	return a, nil
}

// agentRand gives each agent its own stream so outcomes do not depend on
// spawn order.
func (r *Registry) agentRand(id string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(id))
	return rand.New(rand.NewPCG(r.opts.Seed, h.Sum64()))
}

// validSpawn returns p, or the nearest walkable point when p is blocked in
// scene's mask.
func (r *Registry) validSpawn(id, scene string, p geom.Point) geom.Point {
	m := r.masks[scene]
	if m == nil {
		return p
	}
	walkable := func(x, y float64) bool {
		return m.IsWalkable(int(math.Floor(x)), int(math.Floor(y)))
	}
	if walkable(p.X, p.Y) {
		return p
	}
	q, ok := pathfind.NearestWalkable(walkable, p, spawnSearchRadius, spawnSearchStep)
	if !ok {
		r.log.Warn("Spawn point is not walkable and nothing walkable is near", "agent", id, "scene", scene, "x", p.X, "y", p.Y)
		return p
	}
	r.log.Warn("Spawn point is not walkable, moved to nearest walkable point",
		"agent", id, "scene", scene, "x", p.X, "y", p.Y, "new_x", q.X, "new_y", q.Y)
	return q
}

// Agent returns the agent with id.
func (r *Registry) Agent(id string) (*npc.Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// Agents returns every agent in spawn order.
func (r *Registry) Agents() []*npc.Agent {
	out := make([]*npc.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// AgentsInScene returns the agents located in scene, loaded or not.
func (r *Registry) AgentsInScene(scene string) []*npc.Agent {
	var out []*npc.Agent
	for _, id := range r.order {
		if r.locations[id] == scene {
			out = append(out, r.agents[id])
		}
	}
	return out
}

// Location returns the scene agent id is in.
func (r *Registry) Location(id string) (string, bool) {
	s, ok := r.locations[id]
	return s, ok
}

// MoveToScene reassigns an agent's scene without touching its coordinates.
// Callers set the spawn position themselves.
func (r *Registry) MoveToScene(id, scene string) error {
	a, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent %s not found", id)
	}
	if !r.graph.Has(scene) {
		return fmt.Errorf("unknown scene %q", scene)
	}
	from := r.locations[id]
	if from == scene {
		return nil
	}
	r.detach(a, from)
	r.locations[id] = scene
	if r.loaded[scene] {
		r.attach(a, scene)
	}
	return nil
}

// Remove takes an agent out of the world. Unknown ids are ignored, and an
// agent removed mid-path simply stops.
func (r *Registry) Remove(id string) {
	a, ok := r.agents[id]
	if !ok {
		return
	}
	scene := r.locations[id]
	a.MarkRemoved()
	r.detach(a, scene)
	delete(r.agents, id)
	delete(r.locations, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	r.Emit(event.Event{Type: event.AgentRemoved, AgentID: id, Scene: scene, Minute: r.Minute()})
}

// UpdateAll advances the clock and then every agent, one after another in
// spawn order, whether or not its scene is loaded.
func (r *Registry) UpdateAll(dt float64) {
	r.clock.Advance(dt)
	for _, id := range slices.Clone(r.order) {
		a, ok := r.agents[id]
		if !ok || a.Removed() {
			continue
		}
		a.Update(dt)
	}
}

// Transition carries a through portalID of its current scene: leave the old
// scene's live list, update the location, move to the spawn point, and join
// the new scene's live list if that scene is loaded.
func (r *Registry) Transition(a *npc.Agent, portalID int) bool {
	id := a.ID()
	from, ok := r.locations[id]
	if !ok {
		return false
	}
	edge, ok := r.graph.Portal(from, portalID)
	if !ok {
		r.log.Warn("Agent entered a portal with no destination", "agent", id, "scene", from, "portal", portalID)
		return false
	}

	r.detach(a, from)
	r.locations[id] = edge.To
	a.SetFeet(r.validSpawn(id, edge.To, edge.Spawn))
	if r.loaded[edge.To] {
		r.attach(a, edge.To)
	}

	r.log.Debug("Agent transitioned", "agent", id, "from", from, "to", edge.To, "portal", portalID)
	r.Emit(event.Event{
		Type:    event.AgentTransitioned,
		AgentID: id,
		Scene:   edge.To,
		Minute:  r.Minute(),
		Data:    map[string]any{"from": from, "to": edge.To, "portal": portalID},
	})
	return true
}

// Settle attaches a to its scene's live list if that scene is loaded.
func (r *Registry) Settle(a *npc.Agent) {
	scene, ok := r.locations[a.ID()]
	if ok && r.loaded[scene] {
		r.attach(a, scene)
	}
}

func (r *Registry) attach(a *npc.Agent, scene string) {
	if slices.Contains(r.live[scene], a) {
		return
	}
	r.live[scene] = append(r.live[scene], a)
}

func (r *Registry) detach(a *npc.Agent, scene string) {
	list, ok := r.live[scene]
	if !ok {
		return
	}
	r.live[scene] = slices.DeleteFunc(list, func(x *npc.Agent) bool { return x == a })
}

// Resident reports whether scene is loaded.
func (r *Registry) Resident(scene string) bool {
	return r.loaded[scene]
}

// LoadScene marks scene loaded and active and builds its live list from the
// agents located there.
func (r *Registry) LoadScene(scene string) error {
	if !r.graph.Has(scene) {
		return fmt.Errorf("unknown scene %q", scene)
	}
	r.active = scene
	if r.loaded[scene] {
		return nil
	}
	r.loaded[scene] = true
	r.live[scene] = r.AgentsInScene(scene)
	r.log.Info("Scene loaded", "scene", scene, "agents", len(r.live[scene]))
	r.Emit(event.Event{Type: event.SceneLoaded, Scene: scene, Minute: r.Minute()})
	return nil
}

// UnloadScene drops scene's live list. Its agents carry on off screen.
func (r *Registry) UnloadScene(scene string) {
	if !r.loaded[scene] {
		return
	}
	delete(r.loaded, scene)
	delete(r.live, scene)
	if r.active == scene {
		r.active = ""
	}
	r.log.Info("Scene unloaded", "scene", scene)
	r.Emit(event.Event{Type: event.SceneUnloaded, Scene: scene, Minute: r.Minute()})
}

// ActiveScene is the most recently loaded scene, "" when none is.
func (r *Registry) ActiveScene() string {
	return r.active
}

// LoadedScenes lists loaded scenes in name order.
func (r *Registry) LoadedScenes() []string {
	out := make([]string, 0, len(r.loaded))
	for s := range r.loaded {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// LiveAgents is the live object list of a loaded scene.
func (r *Registry) LiveAgents(scene string) []*npc.Agent {
	return slices.Clone(r.live[scene])
}

// AddProp places a prop.
func (r *Registry) AddProp(p Prop) error {
	if p.ID == "" {
		return fmt.Errorf("prop id is required")
	}
	if _, exists := r.props[p.ID]; exists {
		return fmt.Errorf("prop %s already exists", p.ID)
	}
	r.props[p.ID] = &p
	r.propOrder = append(r.propOrder, p.ID)
	return nil
}

func (r *Registry) Prop(id string) (Prop, bool) {
	p, ok := r.props[id]
	if !ok {
		return Prop{}, false
	}
	return *p, true
}

// Props returns every prop in placement order.
func (r *Registry) Props() []Prop {
	out := make([]Prop, 0, len(r.propOrder))
	for _, id := range r.propOrder {
		out = append(out, *r.props[id])
	}
	return out
}

// MoveProp relocates a prop to scene at bounds.
func (r *Registry) MoveProp(id, scene string, bounds geom.Rect) error {
	p, ok := r.props[id]
	if !ok {
		return fmt.Errorf("prop %s not found", id)
	}
	p.Scene, p.Bounds = scene, bounds
	return nil
}

// SetPropPickedUp marks a prop as carried, so it no longer blocks movement.
func (r *Registry) SetPropPickedUp(id string, picked bool) error {
	p, ok := r.props[id]
	if !ok {
		return fmt.Errorf("prop %s not found", id)
	}
	p.PickedUp = picked
	return nil
}

// RemoveProp deletes a prop. Unknown ids are ignored.
func (r *Registry) RemoveProp(id string) {
	if _, ok := r.props[id]; !ok {
		return
	}
	delete(r.props, id)
	r.propOrder = slices.DeleteFunc(r.propOrder, func(s string) bool { return s == id })
}

// Obstacles returns the bounds of props in scene that are still placed.
func (r *Registry) Obstacles(scene string) []geom.Rect {
	var out []geom.Rect
	for _, id := range r.propOrder {
		p := r.props[id]
		if p.Scene == scene && !p.PickedUp {
			out = append(out, p.Bounds)
		}
	}
	return out
}

// Emit buffers an event until the next DrainEvents.
func (r *Registry) Emit(e event.Event) {
	r.events = append(r.events, e)
}

// DrainEvents returns and clears the buffered events.
func (r *Registry) DrainEvents() []event.Event {
	out := r.events
	r.events = nil
	return out
}
