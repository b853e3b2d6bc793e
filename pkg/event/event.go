// Package event defines the notifications the simulation emits while it
// runs. They are buffered by the world and fanned out by the worker.
package event

// Type names a simulation event.
type Type string

const (
	AgentSpawned      Type = "agent.spawned"
	AgentRemoved      Type = "agent.removed"
	AgentTransitioned Type = "agent.transitioned"
	AgentArrived      Type = "agent.arrived"
	AgentRelocated    Type = "agent.relocated"
	StateChanged      Type = "agent.state_changed"
	ScheduleAction    Type = "schedule.action"
	SchedulePreempted Type = "schedule.preempted"
	SceneLoaded       Type = "scene.loaded"
	SceneUnloaded     Type = "scene.unloaded"
)

// Event is one thing that happened during a tick.
type Event struct {
	Type    Type           `json:"type"`
	AgentID string         `json:"agent_id,omitempty"`
	Scene   string         `json:"scene,omitempty"`
	Minute  int            `json:"minute"`
	Data    map[string]any `json:"data,omitempty"`
}

// Sink receives events.
type Sink interface {
	Emit(Event)
}
