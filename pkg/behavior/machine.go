// Package behavior implements the autonomous idle/wander/travel state
// machine that drives an agent when no schedule entry is in control.
package behavior

import (
	"log/slog"
	"math/rand/v2"
)

// Choose maps a uniform draw r in [0, 1) to the next state. While a journey
// is unfinished the wander share shrinks and the freed share goes to travel.
func Choose(r float64, cfg Config, midTravel bool) StateName {
	wander := cfg.WanderProbability
	travel := cfg.TravelProbability
	if midTravel {
		scaled := wander * midTravelWanderScale
		travel += wander - scaled
		wander = scaled
	}
	switch {
	case r < wander:
		return Wander
	case r < wander+travel:
		return Travel
	default:
		return Idle
	}
}

// TransitionFunc observes state changes.
type TransitionFunc func(from, to StateName)

// Machine owns the states of one agent. It is not safe for concurrent use.
type Machine struct {
	body    Body
	cfg     Config
	rng     *rand.Rand
	log     *slog.Logger
	states  map[StateName]State
	current State

	// OnTransition, when set, is called after every state change.
	OnTransition TransitionFunc
}

// NewMachine builds a machine and enters the Idle state.
func NewMachine(body Body, cfg Config, rng *rand.Rand, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m := &Machine{body: body, cfg: cfg, rng: rng, log: log}
	m.states = map[StateName]State{
		Idle:   &idleState{body: body, cfg: &m.cfg, rng: rng},
		Wander: &wanderState{body: body, cfg: &m.cfg, rng: rng, log: log},
		Travel: &travelState{body: body, cfg: &m.cfg, rng: rng, log: log},
	}
	m.SetState(Idle)
	return m
}

// Config returns the machine's tuning.
func (m *Machine) Config() Config {
	return m.cfg
}

// Current returns the active state name.
func (m *Machine) Current() StateName {
	if m.current == nil {
		return ""
	}
	return m.current.Name()
}

// Elapsed returns the time spent in the active state.
func (m *Machine) Elapsed() float64 {
	if m.current == nil {
		return 0
	}
	return m.current.Elapsed()
}

// SetState exits the active state and enters name. Unknown names are ignored.
func (m *Machine) SetState(name StateName) {
	next, ok := m.states[name]
	if !ok {
		m.log.Warn("Unknown behavior state", "agent", m.body.ID(), "state", name)
		return
	}
	var from StateName
	if m.current != nil {
		from = m.current.Name()
		m.current.Exit()
	}
	m.current = next
	next.Enter()
	if m.OnTransition != nil {
		m.OnTransition(from, name)
	}
}

// Restore makes name the active state without entering it, as when resuming
// a saved agent. The restored state starts with a fresh timer and no
// per-visit parameters, so it completes as soon as its own condition allows.
func (m *Machine) Restore(name StateName) {
	next, ok := m.states[name]
	if !ok {
		return
	}
	if r, ok := next.(interface{ restore() }); ok {
		r.restore()
	}
	m.current = next
}

// Update ticks the active state and transitions once it completes.
func (m *Machine) Update(dt float64) {
	if m.current == nil {
		return
	}
	m.current.Update(dt)
	if m.current.Complete() {
		m.SetState(m.decide())
	}
}

func (m *Machine) decide() StateName {
	r := m.rng.Float64()
	next := Choose(r, m.cfg, m.body.HasScenePath())
	if m.body.ConsumeForceTravel() {
		next = Travel
	}
	feet := m.body.Feet()
	m.log.Debug("Behavior decision",
		"agent", m.body.ID(),
		"scene", m.body.Scene(),
		"x", int(feet.X),
		"y", int(feet.Y),
		"from", m.Current(),
		"to", next)
	return next
}
