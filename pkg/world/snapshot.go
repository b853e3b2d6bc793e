package world

import (
	"time"

	"github.com/jwebster45206/npc-engine/pkg/state"
)

// Snapshot captures the world for persistence.
func (r *Registry) Snapshot() *state.WorldState {
	ws := &state.WorldState{
		ID:          r.id,
		Minute:      r.Minute(),
		ActiveScene: r.active,
		NPCs:        make([]state.NPCState, 0, len(r.order)),
		CreatedAt:   r.createdAt,
		UpdatedAt:   time.Now(),
	}
	for _, a := range r.Agents() {
		ws.NPCs = append(ws.NPCs, a.State())
	}
	for _, p := range r.Props() {
		ws.Props = append(ws.Props, state.PropState{ID: p.ID, Scene: p.Scene, Bounds: p.Bounds, PickedUp: p.PickedUp})
	}
	return ws
}

// Restore applies a snapshot to a world built from the same definitions.
// Agents missing from the world are skipped; agents missing from the
// snapshot keep their current state.
func (r *Registry) Restore(ws *state.WorldState) {
	if ws == nil {
		return
	}
	r.id = ws.ID
	if !ws.CreatedAt.IsZero() {
		r.createdAt = ws.CreatedAt
	}
	r.clock.SetMinute(ws.Minute)

	for _, p := range ws.Props {
		if cur, ok := r.props[p.ID]; ok {
			cur.Scene, cur.Bounds, cur.PickedUp = p.Scene, p.Bounds, p.PickedUp
			continue
		}
		if err := r.AddProp(Prop{ID: p.ID, Scene: p.Scene, Bounds: p.Bounds, PickedUp: p.PickedUp}); err != nil {
			r.log.Warn("Saved prop could not be placed, skipping", "prop", p.ID, "scene", p.Scene, "error", err)
		}
	}

	// Locations and residency first: agents resume against them.
	for _, s := range ws.NPCs {
		if _, ok := r.agents[s.ID]; !ok {
			r.log.Warn("Saved agent not in world, skipping", "agent", s.ID)
			continue
		}
		if err := r.MoveToScene(s.ID, s.Scene); err != nil {
			r.log.Warn("Saved agent scene unknown, keeping current scene", "agent", s.ID, "scene", s.Scene, "error", err)
		}
	}
	for _, scene := range r.LoadedScenes() {
		if scene != ws.ActiveScene {
			r.UnloadScene(scene)
		}
	}
	if ws.ActiveScene != "" {
		if err := r.LoadScene(ws.ActiveScene); err != nil {
			r.log.Warn("Saved active scene unknown", "scene", ws.ActiveScene, "error", err)
		}
	}

	for _, s := range ws.NPCs {
		a, ok := r.agents[s.ID]
		if !ok {
			continue
		}
		a.ApplyState(s)
	}
	r.events = nil
}
