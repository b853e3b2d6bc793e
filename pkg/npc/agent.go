// Package npc implements the simulated character: its position, local path
// following, cross-scene journeys and the layering of the schedule over the
// behavior state machine.
package npc

import (
	"log/slog"
	"math/rand/v2"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/behavior"
	"github.com/jwebster45206/npc-engine/pkg/event"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/pathfind"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
)

const (
	// WaypointThreshold is how close the feet must get before a waypoint counts as reached.
	WaypointThreshold = 5.0
	// PortalApproachThreshold replaces WaypointThreshold on the last waypoint
	// before a portal, so the agent walks on into the portal itself.
	PortalApproachThreshold = 2.0

	// StuckWindow and StuckDistance: an agent that moves less than
	// StuckDistance pixels over StuckWindow seconds re-plans its path.
	StuckWindow   = 0.5
	StuckDistance = 1.0
	// RepathInterval re-plans a moving agent's path so it reacts to props.
	RepathInterval = 2.0

	// PropClearance is the side of the box around a point checked against props.
	PropClearance = 10

	startSearchRadius = 50.0
	startSearchStep   = 10.0

	// DefaultSpeed in pixels per second.
	DefaultSpeed = 100.0
)

// Direction is the facing used by the sprite layer.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Capabilities are optional extras an NPC may carry. A nil field means the
// capability is absent.
type Capabilities struct {
	// FeetOffset is the feet position relative to the sprite origin.
	FeetOffset *geom.Point
	// Stats is the NPC's rules-engine actor; its speed attribute is used
	// when nothing more specific sets one.
	Stats *d20.Actor
}

// Definition is the static description an agent is created from.
type Definition struct {
	ID       string
	Type     string
	Scene    string
	Feet     geom.Point
	Speed    float64
	Behavior behavior.Config
	Schedule *schedule.Schedule
	Caps     *Capabilities
}

// Environment is the world as seen by an agent. The world registry
// implements it.
type Environment interface {
	// Location returns the scene the registry has the agent in.
	Location(id string) (string, bool)
	// Resident reports whether scene is currently loaded.
	Resident(scene string) bool
	Mask(scene string) *mask.Mask
	Graph() *scenegraph.Graph
	// Obstacles returns the bounding boxes of props in scene.
	Obstacles(scene string) []geom.Rect
	// Transition carries the agent through portalID of its current scene.
	Transition(a *Agent, portalID int) bool
	// Settle attaches the agent to its scene's live list when that scene is loaded.
	Settle(a *Agent)
	Minute() int
	Emit(e event.Event)
}

// warpPlan is timed movement for an agent whose scene is not loaded.
type warpPlan struct {
	target    geom.Point
	remaining float64
	portal    *int
	avoid     bool
}

// Agent is one simulated character. Agents are owned by the world registry
// and are not safe for concurrent use.
type Agent struct {
	id    string
	typ   string
	env   Environment
	log   *slog.Logger
	caps  *Capabilities
	speed float64

	feet      geom.Point
	direction Direction

	path         []geom.Point
	waypoint     int
	destination  *geom.Point
	avoidPortals bool
	warp         *warpPlan

	targetScene string
	scenePath   []scenegraph.Hop
	sceneStep   int
	finalTarget *geom.Point
	// approachPlanned is set once a path to the current hop's portal has
	// been attempted since the local path last changed.
	approachPlanned bool
	// arrivalPortal is the portal the agent was spawned inside, ignored
	// until the feet leave it.
	arrivalPortal *int

	stuckAnchor geom.Point
	stuckTimer  float64
	repathTimer float64

	forceTravel bool
	removed     bool
	scheduled   bool

	pathfinder *pathfind.Pathfinder
	machine    *behavior.Machine
	schedule   *schedule.Controller
}

// New creates an agent. The registry must know the agent's location before
// the first Update.
func New(def Definition, env Environment, rng *rand.Rand, pf *pathfind.Pathfinder, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	if pf == nil {
		pf = pathfind.New(pathfind.DefaultCellSize)
	}
	a := &Agent{
		id:          def.ID,
		typ:         def.Type,
		env:         env,
		log:         log,
		caps:        def.Caps,
		feet:        def.Feet,
		direction:   Down,
		stuckAnchor: def.Feet,
		pathfinder:  pf,
	}
	a.speed = resolveSpeed(def)

	a.machine = behavior.NewMachine(a, def.Behavior, rng, log)
	a.machine.OnTransition = func(from, to behavior.StateName) {
		a.emit(event.StateChanged, map[string]any{"from": string(from), "to": string(to)})
	}

	if def.Schedule != nil {
		a.schedule = schedule.NewController(a, def.Schedule, log)
		a.schedule.OnStart = func(e schedule.Entry) {
			a.emit(event.ScheduleAction, map[string]any{"time": e.Time, "action": e.Action.Kind()})
		}
		a.schedule.OnPreempt = func(from, to schedule.Entry) {
			a.emit(event.SchedulePreempted, map[string]any{
				"from":      from.Action.Kind(),
				"from_time": from.Time,
				"to":        to.Action.Kind(),
				"to_time":   to.Time,
			})
		}
	}
	return a
}

// resolveSpeed picks the most specific speed: the definition, then the
// schedule document, then the stat block, then the behavior preset.
func resolveSpeed(def Definition) float64 {
	if def.Speed > 0 {
		return def.Speed
	}
	if def.Schedule != nil && def.Schedule.Speed > 0 {
		return def.Schedule.Speed
	}
	if def.Caps != nil {
		if s, ok := actor.Speed(def.Caps.Stats); ok {
			return s
		}
	}
	if def.Behavior.Speed > 0 {
		return def.Behavior.Speed
	}
	return DefaultSpeed
}

func (a *Agent) ID() string   { return a.id }
func (a *Agent) Type() string { return a.typ }

// Scene returns the registry's location for the agent.
func (a *Agent) Scene() string {
	s, _ := a.env.Location(a.id)
	return s
}

func (a *Agent) Feet() geom.Point     { return a.feet }
func (a *Agent) Direction() Direction { return a.direction }
func (a *Agent) Speed() float64       { return a.speed }

// Capabilities returns the optional capability record, possibly nil.
func (a *Agent) Capabilities() *Capabilities { return a.caps }

// Origin is the sprite's top-left corner derived from the feet position.
func (a *Agent) Origin() geom.Point {
	if a.caps == nil || a.caps.FeetOffset == nil {
		return a.feet
	}
	return a.feet.Sub(*a.caps.FeetOffset)
}

// SetFeet moves the agent within its current scene.
func (a *Agent) SetFeet(p geom.Point) {
	a.feet = p
	a.stuckAnchor = p
}

// Resident reports whether the agent's scene is loaded.
func (a *Agent) Resident() bool {
	return a.env.Resident(a.Scene())
}

func (a *Agent) Mask() *mask.Mask {
	return a.env.Mask(a.Scene())
}

func (a *Agent) Exits() []scenegraph.Edge {
	return a.env.Graph().Edges(a.Scene())
}

// Machine exposes the behavior state machine.
func (a *Agent) Machine() *behavior.Machine { return a.machine }

// Schedule returns the schedule controller, nil for unscheduled agents.
func (a *Agent) Schedule() *schedule.Controller { return a.schedule }

// ForceTravel makes the next behavior decision pick Travel.
func (a *Agent) ForceTravel() { a.forceTravel = true }

func (a *Agent) ConsumeForceTravel() bool {
	v := a.forceTravel
	a.forceTravel = false
	return v
}

func (a *Agent) SettleInScene() { a.env.Settle(a) }

// Removed reports whether the agent has been taken out of the world.
func (a *Agent) Removed() bool { return a.removed }

// MarkRemoved stops the agent. Called by the registry.
func (a *Agent) MarkRemoved() {
	a.removed = true
	a.haltJourney()
	a.ClearPath()
	a.warp = nil
}

// Update advances the agent by dt seconds: the schedule first, the behavior
// machine when no entry is in control, then movement.
func (a *Agent) Update(dt float64) {
	if a.removed {
		return
	}
	a.scheduled = a.schedule != nil && a.schedule.Update(a.env.Minute())
	if !a.scheduled {
		a.machine.Update(dt)
	}
	if a.removed {
		return
	}
	if a.Resident() {
		a.updateResident(dt)
	} else {
		a.updateOffscreen(dt)
	}
}

// Preempt drops everything the agent is doing ahead of a schedule entry.
func (a *Agent) Preempt() {
	a.haltJourney()
	a.ClearPath()
	a.warp = nil
	a.machine.SetState(behavior.Idle)
}

// StateName is the debug name of what controls the agent right now.
func (a *Agent) StateName() string {
	if a.scheduled && a.schedule != nil {
		if e, ok := a.schedule.Current(); ok {
			return "schedule:" + e.Action.Kind()
		}
	}
	return string(a.machine.Current())
}

// Animation is "moving" while a path or warp is active, else "idle".
func (a *Agent) Animation() string {
	if a.hasLocalPath() || a.warp != nil || (a.HasScenePath() && a.Resident()) {
		return "moving"
	}
	return "idle"
}

func (a *Agent) emit(t event.Type, data map[string]any) {
	a.env.Emit(event.Event{
		Type:    t,
		AgentID: a.id,
		Scene:   a.Scene(),
		Minute:  a.env.Minute(),
		Data:    data,
	})
}
