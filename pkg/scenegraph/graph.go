// Package scenegraph models scenes as nodes joined by portal edges and
// answers shortest-hop routing queries between them.
package scenegraph

import (
	"sort"

	"github.com/jwebster45206/npc-engine/pkg/geom"
)

// PortalConfig is where a portal in a scene leads.
type PortalConfig struct {
	ToScene string     `json:"to_scene"`
	Spawn   geom.Point `json:"spawn"`
}

// Edge is one directed portal link.
type Edge struct {
	From     string     `json:"from"`
	PortalID int        `json:"portal_id"`
	To       string     `json:"to"`
	Spawn    geom.Point `json:"spawn"`
}

// Hop is one step of a scene-level route. PortalID is the portal to take
// out of Scene; it is nil on the final hop, which names the destination.
// Spawn is where the agent lands after taking the portal (the final hop
// repeats the arrival spawn).
type Hop struct {
	Scene    string     `json:"scene"`
	PortalID *int       `json:"portal_id"`
	Spawn    geom.Point `json:"spawn"`
}

// Final reports whether h is the last hop of a route.
func (h Hop) Final() bool {
	return h.PortalID == nil
}

// Graph is a directed scene graph. It is not safe for concurrent mutation.
type Graph struct {
	edges map[string][]Edge
	order []string
}

func New() *Graph {
	return &Graph{edges: make(map[string][]Edge)}
}

// Register sets the outgoing edges of scene, replacing any previous
// registration. Edges are kept in ascending portal id order.
func (g *Graph) Register(scene string, portals map[int]PortalConfig) {
	if _, ok := g.edges[scene]; !ok {
		g.order = append(g.order, scene)
	}
	ids := make([]int, 0, len(portals))
	for id := range portals {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	edges := make([]Edge, 0, len(ids))
	for _, id := range ids {
		p := portals[id]
		edges = append(edges, Edge{From: scene, PortalID: id, To: p.ToScene, Spawn: p.Spawn})
	}
	g.edges[scene] = edges
}

// Has reports whether scene has been registered.
func (g *Graph) Has(scene string) bool {
	_, ok := g.edges[scene]
	return ok
}

// Scenes returns registered scene names in registration order.
func (g *Graph) Scenes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns the outgoing edges of scene.
func (g *Graph) Edges(scene string) []Edge {
	src := g.edges[scene]
	out := make([]Edge, len(src))
	copy(out, src)
	return out
}

// Portal looks up a single outgoing portal of scene.
func (g *Graph) Portal(scene string, portalID int) (Edge, bool) {
	for _, e := range g.edges[scene] {
		if e.PortalID == portalID {
			return e, true
		}
	}
	return Edge{}, false
}

// FindScenePath returns the minimum-hop route from one scene to another.
// The route is empty when from == to and nil when to is unreachable.
// Ties between equal-length routes go to the earliest registered edge.
func (g *Graph) FindScenePath(from, to string) []Hop {
	if from == to {
		return []Hop{}
	}
	if !g.Has(from) {
		return nil
	}

	// via records the edge used to first reach each scene.
	via := map[string]Edge{}
	seen := map[string]bool{from: true}
	queue := []string{from}

	for len(queue) > 0 {
		scene := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[scene] {
			if seen[e.To] {
				continue
			}
			seen[e.To] = true
			via[e.To] = e
			if e.To == to {
				return buildHops(via, from, to)
			}
			queue = append(queue, e.To)
		}
	}
	return nil
}

func buildHops(via map[string]Edge, from, to string) []Hop {
	var edges []Edge
	for s := to; s != from; {
		e := via[s]
		edges = append(edges, e)
		s = e.From
	}

	hops := make([]Hop, 0, len(edges)+1)
	for i := len(edges) - 1; i >= 0; i-- {
		e := edges[i]
		id := e.PortalID
		hops = append(hops, Hop{Scene: e.From, PortalID: &id, Spawn: e.Spawn})
	}
	hops = append(hops, Hop{Scene: to, Spawn: edges[0].Spawn})
	return hops
}

// Reachable returns every scene reachable from scene, excluding scene itself,
// in BFS order.
func (g *Graph) Reachable(scene string) []string {
	seen := map[string]bool{scene: true}
	queue := []string{scene}
	var out []string
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[s] {
			if seen[e.To] {
				continue
			}
			seen[e.To] = true
			out = append(out, e.To)
			queue = append(queue, e.To)
		}
	}
	return out
}
