package npc

import (
	"github.com/jwebster45206/npc-engine/pkg/behavior"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
	"github.com/jwebster45206/npc-engine/pkg/state"
)

// Status is the read-only view served to debug overlays and the API.
type Status struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Scene       string           `json:"scene"`
	Feet        geom.Point       `json:"feet"`
	Origin      geom.Point       `json:"origin"`
	Direction   Direction        `json:"direction"`
	Animation   string           `json:"animation"`
	State       string           `json:"state"`
	Behavior    string           `json:"behavior_state"`
	Speed       float64          `json:"speed"`
	Path        []geom.Point     `json:"path,omitempty"`
	TargetScene string           `json:"target_scene,omitempty"`
	ScenePath   []scenegraph.Hop `json:"scene_path,omitempty"`
	SceneStep   int              `json:"scene_step"`
	Schedule    string           `json:"schedule_entry,omitempty"`
	Preemptions int              `json:"schedule_preemptions,omitempty"`
	Stats       *Stats           `json:"stats,omitempty"`
}

// Stats summarises the optional stat block.
type Stats struct {
	HP    int `json:"hp"`
	MaxHP int `json:"max_hp"`
	AC    int `json:"ac"`
}

func (a *Agent) Status() Status {
	s := Status{
		ID:          a.id,
		Type:        a.typ,
		Scene:       a.Scene(),
		Feet:        a.feet,
		Origin:      a.Origin(),
		Direction:   a.direction,
		Animation:   a.Animation(),
		State:       a.StateName(),
		Behavior:    string(a.machine.Current()),
		Speed:       a.speed,
		Path:        a.Path(),
		TargetScene: a.targetScene,
		SceneStep:   a.sceneStep,
	}
	if a.HasScenePath() {
		s.ScenePath = append([]scenegraph.Hop(nil), a.scenePath...)
	}
	if a.schedule != nil {
		if e, ok := a.schedule.Current(); ok {
			s.Schedule = e.Time + " " + e.Action.Kind()
		}
		s.Preemptions = a.schedule.Preemptions
	}
	if a.caps != nil && a.caps.Stats != nil {
		s.Stats = &Stats{HP: a.caps.Stats.HP(), MaxHP: a.caps.Stats.MaxHP(), AC: a.caps.Stats.AC()}
	}
	return s
}

// State captures what is needed to resume the agent, including an
// unfinished journey.
func (a *Agent) State() state.NPCState {
	s := state.NPCState{
		ID:            a.id,
		Type:          a.typ,
		Scene:         a.Scene(),
		X:             a.feet.X,
		Y:             a.feet.Y,
		Direction:     string(a.direction),
		TargetScene:   a.targetScene,
		SceneStep:     a.sceneStep,
		AvoidPortal:   a.avoidPortals,
		Behavior:      string(a.machine.Current()),
		ScheduleEntry: -1,
		ForceTravel:   a.forceTravel,
	}
	if len(a.scenePath) > 0 {
		s.ScenePath = append([]scenegraph.Hop(nil), a.scenePath...)
	}
	if a.finalTarget != nil {
		t := *a.finalTarget
		s.FinalTarget = &t
	}
	// A pending warp target stands in for the destination off screen.
	if a.destination != nil {
		d := *a.destination
		s.Destination = &d
	} else if a.warp != nil && a.warp.portal == nil {
		d := a.warp.target
		s.Destination = &d
		s.AvoidPortal = a.warp.avoid
	}
	if a.warp != nil {
		t := a.warp.target
		s.WarpTarget = &t
		s.WarpRemaining = a.warp.remaining
		s.WarpAvoidPortals = a.warp.avoid
		if a.warp.portal != nil {
			id := *a.warp.portal
			s.WarpPortal = &id
		}
	}
	if a.schedule != nil {
		s.ScheduleEntry = a.schedule.CurrentIndex()
		s.ScheduleExecuting = a.schedule.Executing()
	}
	return s
}

// ApplyState resumes a saved agent. The registry must already hold the
// saved scene as the agent's location. The journey continues from the
// saved step without choosing a destination again.
func (a *Agent) ApplyState(s state.NPCState) {
	a.feet = geom.Pt(s.X, s.Y)
	a.stuckAnchor = a.feet
	if s.Direction != "" {
		a.direction = Direction(s.Direction)
	}
	a.forceTravel = s.ForceTravel
	a.path, a.waypoint, a.warp = nil, 0, nil
	a.destination = nil
	a.arrivalPortal = nil

	if s.Behavior != "" {
		a.machine.Restore(behavior.StateName(s.Behavior))
	}
	if a.schedule != nil {
		a.schedule.Restore(s.ScheduleEntry, s.ScheduleExecuting)
	}

	a.targetScene = s.TargetScene
	a.scenePath = append([]scenegraph.Hop(nil), s.ScenePath...)
	a.sceneStep = s.SceneStep
	a.finalTarget = nil
	if s.FinalTarget != nil {
		t := *s.FinalTarget
		a.finalTarget = &t
	}

	if m := a.Mask(); m != nil {
		if id, in := m.PortalAt(a.feet.Pixel()); in {
			a.arrivalPortal = &id
		}
	}

	switch {
	case s.WarpTarget != nil:
		a.resumeWarp(s)
	case a.HasScenePath():
		a.startHop()
	case s.Destination != nil:
		a.PathfindTo(*s.Destination, s.AvoidPortal)
	}
}

// resumeWarp restores an unfinished warp with the time it had left. A
// resident agent turns it into a path on its next update.
func (a *Agent) resumeWarp(s state.NPCState) {
	w := &warpPlan{target: *s.WarpTarget, remaining: s.WarpRemaining, avoid: s.WarpAvoidPortals}
	if s.WarpPortal != nil {
		id := *s.WarpPortal
		w.portal = &id
	} else if s.Destination != nil {
		d := *s.Destination
		a.destination = &d
		a.avoidPortals = s.AvoidPortal
	}
	a.warp = w
}
