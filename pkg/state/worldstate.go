package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
)

// WorldState is the persisted form of a running world.
type WorldState struct {
	ID          uuid.UUID   `json:"id"`
	Minute      int         `json:"minute"` // game time of day
	ActiveScene string      `json:"active_scene,omitempty"`
	NPCs        []NPCState  `json:"npcs"`
	Props       []PropState `json:"props,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NPCState is everything needed to resume an agent mid-journey.
type NPCState struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Scene       string           `json:"scene"`
	X           float64          `json:"x"` // feet position
	Y           float64          `json:"y"`
	Direction   string           `json:"direction"`
	TargetScene string           `json:"target_scene,omitempty"`
	ScenePath   []scenegraph.Hop `json:"scene_path,omitempty"`
	SceneStep   int              `json:"scene_step"`
	FinalTarget *geom.Point      `json:"final_target,omitempty"`
	Destination *geom.Point      `json:"destination,omitempty"`
	AvoidPortal bool             `json:"avoid_portals,omitempty"`
	Behavior    string           `json:"behavior_state,omitempty"`

	// Warp* hold an unfinished off-screen move; WarpPortal is set when the
	// warp ends by crossing that portal.
	WarpTarget       *geom.Point `json:"warp_target,omitempty"`
	WarpRemaining    float64     `json:"warp_remaining,omitempty"`
	WarpPortal       *int        `json:"warp_portal,omitempty"`
	WarpAvoidPortals bool        `json:"warp_avoid_portals,omitempty"`

	// ScheduleEntry is the index of the last started schedule entry, -1 for none.
	ScheduleEntry     int  `json:"schedule_entry"`
	ScheduleExecuting bool `json:"schedule_executing,omitempty"`
	ForceTravel       bool `json:"force_travel,omitempty"`
}

// PropState is a prop's location and pickup flag.
type PropState struct {
	ID       string    `json:"id"`
	Scene    string    `json:"scene"`
	Bounds   geom.Rect `json:"bounds"`
	PickedUp bool      `json:"picked_up,omitempty"`
}

// NewWorldState returns an empty state with a fresh id.
func NewWorldState() *WorldState {
	now := time.Now()
	return &WorldState{
		ID:        uuid.New(),
		NPCs:      make([]NPCState, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NPC returns the saved state of one agent.
func (ws *WorldState) NPC(id string) (NPCState, bool) {
	for _, n := range ws.NPCs {
		if n.ID == id {
			return n, true
		}
	}
	return NPCState{}, false
}
