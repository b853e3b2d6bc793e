package npc

import (
	"math"

	"github.com/jwebster45206/npc-engine/pkg/event"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/pathfind"
)

func (a *Agent) hasLocalPath() bool {
	return a.waypoint < len(a.path)
}

// HasPath reports whether local movement is pending: a path on screen or a
// timed warp off screen. Journey warps count as scene travel, not local.
func (a *Agent) HasPath() bool {
	return a.hasLocalPath() || (a.warp != nil && a.warp.portal == nil)
}

func (a *Agent) HasScenePath() bool {
	return a.sceneStep < len(a.scenePath)
}

// Journey returns the destination scene of an unfinished trip.
func (a *Agent) Journey() (string, bool) {
	return a.targetScene, a.targetScene != "" && a.HasScenePath()
}

// Path returns the remaining waypoints.
func (a *Agent) Path() []geom.Point {
	if !a.hasLocalPath() {
		return nil
	}
	return append([]geom.Point(nil), a.path[a.waypoint:]...)
}

// ClearPath stops local movement. A pending journey is kept.
func (a *Agent) ClearPath() {
	a.path, a.waypoint = nil, 0
	a.destination = nil
	a.approachPlanned = false
	if a.warp != nil && a.warp.portal == nil {
		a.warp = nil
	}
}

func (a *Agent) haltJourney() {
	a.targetScene = ""
	a.scenePath = nil
	a.sceneStep = 0
	a.finalTarget = nil
	if a.warp != nil && a.warp.portal != nil {
		a.warp = nil
	}
}

// Walkable checks p against the mask of the agent's scene and its props.
func (a *Agent) Walkable(p geom.Point, avoidPortals bool) bool {
	scene := a.Scene()
	m := a.env.Mask(scene)
	if m == nil {
		return false
	}
	return a.walkable(scene, m, avoidPortals)(p.X, p.Y)
}

func (a *Agent) walkable(scene string, m *mask.Mask, avoidPortals bool) pathfind.WalkableFunc {
	obstacles := a.env.Obstacles(scene)
	return func(x, y float64) bool {
		px, py := int(math.Floor(x)), int(math.Floor(y))
		if !m.IsWalkable(px, py) {
			return false
		}
		if avoidPortals {
			if _, in := m.PortalAt(px, py); in {
				return false
			}
		}
		if len(obstacles) > 0 {
			box := geom.RectAround(geom.Pt(x, y), PropClearance, PropClearance)
			for _, r := range obstacles {
				if box.Intersects(r) {
					return false
				}
			}
		}
		return true
	}
}

// PathfindTo plans local movement to target in the current scene. A
// resident agent gets an A* path; an off-screen agent gets a timed warp.
// It returns false when there is nothing to follow.
func (a *Agent) PathfindTo(target geom.Point, avoidPortals bool) bool {
	a.path, a.waypoint = nil, 0
	a.approachPlanned = false
	if a.warp != nil && a.warp.portal == nil {
		a.warp = nil
	}
	a.stuckTimer, a.repathTimer = 0, 0
	a.stuckAnchor = a.feet

	scene := a.Scene()
	m := a.env.Mask(scene)
	if m == nil {
		a.log.Debug("No mask for scene, cannot pathfind", "agent", a.id, "scene", scene)
		a.destination = nil
		return false
	}
	if avoidPortals {
		// A target inside a portal can only be reached through it.
		if _, in := m.PortalAt(target.Pixel()); in {
			avoidPortals = false
		}
	}
	a.destination = &target
	a.avoidPortals = avoidPortals

	if !a.env.Resident(scene) {
		return a.planWarp(target, nil, avoidPortals)
	}

	walkable := a.walkable(scene, m, avoidPortals)
	start := a.feet
	if !walkable(start.X, start.Y) {
		p, ok := pathfind.NearestWalkable(walkable, start, startSearchRadius, startSearchStep)
		if !ok {
			a.log.Warn("No walkable start position near agent", "agent", a.id, "scene", scene, "x", start.X, "y", start.Y)
			a.destination = nil
			return false
		}
		a.relocate(p, "blocked start")
		start = p
	}

	path := a.pathfinder.FindPath(walkable, start, target, m.Width(), m.Height())
	if len(path) == 0 {
		a.log.Debug("No path to target", "agent", a.id, "scene", scene, "x", target.X, "y", target.Y)
		a.destination = nil
		return false
	}
	a.path = path
	return true
}

// planWarp schedules an off-screen move to target taking distance/speed
// seconds. Local targets are checked against the cached mask first.
func (a *Agent) planWarp(target geom.Point, portal *int, avoidPortals bool) bool {
	if portal == nil {
		scene := a.Scene()
		if m := a.env.Mask(scene); m != nil {
			walkable := a.walkable(scene, m, avoidPortals)
			if !walkable(target.X, target.Y) {
				p, ok := pathfind.NearestWalkable(walkable, target, startSearchRadius, startSearchStep)
				if !ok {
					a.destination = nil
					return false
				}
				target = p
			}
		}
	}
	var d float64
	if a.speed > 0 {
		d = a.feet.Dist(target) / a.speed
	}
	a.warp = &warpPlan{target: target, remaining: d, portal: portal, avoid: avoidPortals}
	return true
}

// PathfindToScene starts a journey to scene, optionally ending at target.
// It returns false when no route exists.
func (a *Agent) PathfindToScene(scene string, target *geom.Point) bool {
	current := a.Scene()
	if scene == current {
		a.haltJourney()
		if target == nil {
			a.ClearPath()
			return true
		}
		return a.PathfindTo(*target, true)
	}

	hops := a.env.Graph().FindScenePath(current, scene)
	if len(hops) == 0 {
		a.log.Debug("No scene path", "agent", a.id, "from", current, "to", scene)
		return false
	}

	a.ClearPath()
	a.warp = nil
	a.targetScene = scene
	a.scenePath = hops
	a.sceneStep = 0
	a.finalTarget = nil
	if target != nil {
		t := *target
		a.finalTarget = &t
	}
	a.startHop()
	return true
}

// startHop heads for the portal of the current hop.
func (a *Agent) startHop() {
	if !a.HasScenePath() {
		return
	}
	hop := a.scenePath[a.sceneStep]
	if hop.PortalID == nil {
		a.arrive()
		return
	}
	id := *hop.PortalID

	center := a.feet
	m := a.Mask()
	if m != nil {
		if b, ok := m.PortalBounds(id); ok {
			center = b.CenterPoint()
		}
	}

	if !a.Resident() {
		a.path, a.waypoint, a.destination = nil, 0, nil
		a.planWarp(center, &id, false)
		return
	}
	a.warp = nil
	if m != nil {
		a.PathfindTo(center, false)
	}
	a.approachPlanned = true
}

// arrive finishes a journey. The step counter keeps its final value.
func (a *Agent) arrive() {
	target := a.finalTarget
	dest := a.targetScene
	a.targetScene = ""
	a.scenePath = nil
	a.finalTarget = nil
	a.emit(event.AgentArrived, map[string]any{"target_scene": dest, "scene_step": a.sceneStep})

	if target != nil {
		a.PathfindTo(*target, true)
		return
	}
	a.ClearPath()
}

// transition asks the registry to carry the agent through a portal.
func (a *Agent) transition(portalID int) bool {
	if !a.env.Transition(a, portalID) {
		return false
	}
	a.path, a.waypoint, a.destination = nil, 0, nil
	a.warp = nil
	a.approachPlanned = false
	a.stuckTimer, a.repathTimer = 0, 0
	a.arrivalPortal = nil
	if m := a.Mask(); m != nil {
		if id, in := m.PortalAt(a.feet.Pixel()); in {
			a.arrivalPortal = &id
		}
	}
	return true
}

// crossPortal takes the expected portal of the current hop.
func (a *Agent) crossPortal(portalID int) bool {
	if !a.transition(portalID) {
		return false
	}
	a.sceneStep++
	a.afterHop()
	return true
}

func (a *Agent) afterHop() {
	if !a.HasScenePath() {
		a.arrive()
		return
	}
	hop := a.scenePath[a.sceneStep]
	if hop.Scene != a.Scene() {
		a.log.Warn("Journey left its route, replanning", "agent", a.id, "scene", a.Scene(), "expected", hop.Scene)
		a.replan()
		return
	}
	if hop.Final() {
		a.arrive()
		return
	}
	a.startHop()
}

// replan recomputes the journey from wherever the agent is now.
func (a *Agent) replan() {
	dest, target := a.targetScene, a.finalTarget
	a.haltJourney()
	if dest == "" {
		return
	}
	if !a.PathfindToScene(dest, target) {
		a.log.Warn("Lost route to destination", "agent", a.id, "scene", a.Scene(), "target_scene", dest)
	}
}

func (a *Agent) relocate(p geom.Point, reason string) {
	from := a.feet
	a.log.Warn("Relocating agent to walkable ground",
		"agent", a.id,
		"scene", a.Scene(),
		"reason", reason,
		"from_x", from.X, "from_y", from.Y,
		"x", p.X, "y", p.Y)
	a.SetFeet(p)
	a.emit(event.AgentRelocated, map[string]any{"reason": reason, "from": from, "to": p})
}

func (a *Agent) updateResident(dt float64) {
	if a.warp != nil {
		w := a.warp
		a.warp = nil
		if w.portal != nil {
			a.startHop()
		} else {
			a.PathfindTo(w.target, w.avoid)
		}
	}
	if a.checkPortal() {
		return
	}
	a.trackProgress(dt)
	a.followPath(dt)
}

func (a *Agent) updateOffscreen(dt float64) {
	if a.hasLocalPath() {
		last := a.path[len(a.path)-1]
		avoid := a.avoidPortals
		a.path, a.waypoint = nil, 0
		if a.HasScenePath() {
			a.startHop()
		} else {
			a.planWarp(last, nil, avoid)
		}
	} else if a.warp == nil && a.HasScenePath() {
		a.startHop()
	}

	if a.warp == nil {
		return
	}
	a.warp.remaining -= dt
	if a.warp.remaining > 0 {
		return
	}
	w := a.warp
	a.warp = nil
	a.SetFeet(w.target)
	if w.portal == nil {
		a.destination = nil
		return
	}
	if !a.crossPortal(*w.portal) {
		a.log.Warn("Portal transition refused", "agent", a.id, "scene", a.Scene(), "portal", *w.portal)
		a.replan()
	}
}

// checkPortal reacts to the feet standing in a portal. It returns true when
// the agent changed scenes.
func (a *Agent) checkPortal() bool {
	m := a.Mask()
	if m == nil {
		return false
	}
	id, in := m.PortalAt(a.feet.Pixel())
	if !in {
		a.arrivalPortal = nil
		return false
	}
	if a.arrivalPortal != nil && *a.arrivalPortal == id {
		return false
	}

	if a.HasScenePath() {
		hop := a.scenePath[a.sceneStep]
		if hop.PortalID != nil && *hop.PortalID == id {
			return a.crossPortal(id)
		}
		if a.hasLocalPath() {
			return false
		}
		// Stepped into another portal once the path ran out.
		if !a.transition(id) {
			return false
		}
		a.replan()
		return true
	}

	return a.transition(id)
}

func (a *Agent) trackProgress(dt float64) {
	if !a.hasLocalPath() || a.destination == nil {
		a.stuckTimer, a.repathTimer = 0, 0
		a.stuckAnchor = a.feet
		return
	}

	if a.feet.Dist(a.stuckAnchor) < StuckDistance {
		a.stuckTimer += dt
		if a.stuckTimer > StuckWindow {
			a.log.Debug("Agent stuck, re-pathfinding", "agent", a.id, "scene", a.Scene())
			a.repath()
			return
		}
	} else {
		a.stuckTimer = 0
		a.stuckAnchor = a.feet
	}

	a.repathTimer += dt
	if a.repathTimer >= RepathInterval {
		a.repath()
	}
}

func (a *Agent) repath() {
	dest := *a.destination
	approach := a.approachPlanned
	a.PathfindTo(dest, a.avoidPortals)
	a.approachPlanned = approach
}

func (a *Agent) followPath(dt float64) {
	if !a.hasLocalPath() {
		if len(a.path) > 0 {
			a.path, a.waypoint = nil, 0
			a.destination = nil
		}
		a.approachPortal(dt)
		return
	}

	target := a.path[a.waypoint]
	threshold := WaypointThreshold
	if a.waypoint == len(a.path)-1 && a.HasScenePath() {
		threshold = PortalApproachThreshold
	}
	if a.feet.Dist(target) < threshold {
		a.face(target.Sub(a.feet))
		a.waypoint++
		return
	}
	if a.step(target, dt) {
		a.waypoint++
	}
}

// approachPortal keeps a travelling agent heading for its portal once the
// local path is used up.
func (a *Agent) approachPortal(dt float64) {
	if !a.HasScenePath() {
		return
	}
	hop := a.scenePath[a.sceneStep]
	if hop.PortalID == nil {
		a.arrive()
		return
	}
	m := a.Mask()
	if m == nil {
		return
	}
	id := *hop.PortalID
	px, py := a.feet.Pixel()
	if m.PointInPortal(px, py, id) {
		return
	}
	b, ok := m.PortalBounds(id)
	if !ok {
		return
	}
	center := b.CenterPoint()
	if !a.approachPlanned {
		ok := a.PathfindTo(center, false)
		a.approachPlanned = true
		if ok {
			return
		}
	}
	a.step(center, dt)
}

// step moves the feet toward target at the agent's speed and reports
// whether target was reached.
func (a *Agent) step(target geom.Point, dt float64) bool {
	d := target.Sub(a.feet)
	dist := math.Hypot(d.X, d.Y)
	if dist > 0 {
		a.face(d)
	}
	move := a.speed * dt
	if move >= dist {
		a.feet = target
		return true
	}
	a.feet = geom.Pt(a.feet.X+d.X/dist*move, a.feet.Y+d.Y/dist*move)
	return false
}

func (a *Agent) face(d geom.Point) {
	if math.Abs(d.X) > math.Abs(d.Y) {
		if d.X > 0 {
			a.direction = Right
		} else {
			a.direction = Left
		}
		return
	}
	if d.Y > 0 {
		a.direction = Down
	} else {
		a.direction = Up
	}
}
