package behavior

import (
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
)

// Body is the agent as seen by its behavior states.
type Body interface {
	ID() string
	Scene() string
	Feet() geom.Point
	// SetFeet teleports the agent within its current scene.
	SetFeet(geom.Point)
	Speed() float64

	// Resident reports whether the agent's scene is currently loaded.
	Resident() bool
	// Mask returns the collision mask of the agent's scene, nil if none is cached.
	Mask() *mask.Mask
	// Walkable checks the scene mask and props at p.
	Walkable(p geom.Point, avoidPortals bool) bool
	Exits() []scenegraph.Edge

	HasPath() bool
	HasScenePath() bool
	// Journey returns the destination of an unfinished cross-scene trip.
	Journey() (string, bool)
	ClearPath()
	PathfindTo(target geom.Point, avoidPortals bool) bool
	PathfindToScene(scene string, target *geom.Point) bool

	// ConsumeForceTravel reports and clears a pending travel override.
	ConsumeForceTravel() bool
	// SettleInScene attaches the agent to its scene's live list when that
	// scene is loaded.
	SettleInScene()
}
