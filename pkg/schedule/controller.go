package schedule

import (
	"log/slog"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/geom"
)

// waitLogInterval is how often, in game minutes, an agent without a
// running entry logs that it is waiting.
const waitLogInterval = 10

// Body is the agent as seen by the schedule controller.
type Body interface {
	ID() string
	Scene() string
	Feet() geom.Point
	HasPath() bool
	HasScenePath() bool
	// Preempt stops whatever the agent is doing, including any journey,
	// before a new entry starts.
	Preempt()
	PathfindTo(target geom.Point, avoidPortals bool) bool
	PathfindToScene(scene string, target *geom.Point) bool
}

// Controller runs one agent's schedule. It is not safe for concurrent use.
type Controller struct {
	body      Body
	sched     *Schedule
	log       *slog.Logger
	current   int
	executing bool
	lastWait  int

	// Preemptions counts entries cut short while still moving.
	Preemptions int

	// OnStart is called when an entry begins.
	OnStart func(e Entry)
	// OnPreempt is called when a movement entry is cut short by the next one.
	OnPreempt func(from, to Entry)
}

func NewController(body Body, sched *Schedule, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{body: body, sched: sched, log: log, current: -1, lastWait: -1}
}

// Schedule returns the plan being followed.
func (c *Controller) Schedule() *Schedule {
	return c.sched
}

// Current returns the most recently started entry.
func (c *Controller) Current() (Entry, bool) {
	if c.sched == nil || c.current < 0 || c.current >= len(c.sched.Entries) {
		return Entry{}, false
	}
	return c.sched.Entries[c.current], true
}

// CurrentIndex returns the index of the most recently started entry, or -1.
func (c *Controller) CurrentIndex() int {
	return c.current
}

// Executing reports whether the current entry is still in control.
func (c *Controller) Executing() bool {
	return c.executing
}

// Restore resumes at a previously started entry without dispatching it again.
func (c *Controller) Restore(index int, executing bool) {
	if c.sched == nil || index < 0 || index >= len(c.sched.Entries) {
		c.current, c.executing = -1, false
		return
	}
	c.current, c.executing = index, executing
}

// Update checks the schedule against minute and returns whether an entry
// is in control of the agent.
func (c *Controller) Update(minute int) bool {
	if c.sched == nil || len(c.sched.Entries) == 0 {
		return false
	}

	idx, ok := c.sched.Resolve(minute)
	if ok && idx != c.current {
		next := c.sched.Entries[idx]
		if prev, had := c.Current(); had && c.executing && Movement(prev.Action) && !c.complete() {
			c.Preemptions++
			c.log.Warn("Agent still pathfinding at schedule transition",
				"agent", c.body.ID(),
				"from", prev.Action.Kind(),
				"to", next.Action.Kind(),
				"at", next.Time)
			if c.OnPreempt != nil {
				c.OnPreempt(prev, next)
			}
		}
		c.start(idx)
		return c.executing
	}

	if c.executing && c.complete() {
		c.executing = false
	}
	if !c.executing {
		c.logWaiting(minute, idx, ok)
	}
	return c.executing
}

func (c *Controller) complete() bool {
	e, ok := c.Current()
	if !ok || !c.executing {
		return true
	}
	switch e.Action.(type) {
	case Idle:
		return false
	case MoveTo, NavigateToScene:
		return !c.body.HasPath() && !c.body.HasScenePath()
	default:
		return true
	}
}

func (c *Controller) start(idx int) {
	e := c.sched.Entries[idx]
	c.current = idx
	c.executing = true

	feet := c.body.Feet()
	c.log.Info("Schedule action",
		"agent", c.body.ID(),
		"scene", c.body.Scene(),
		"x", int(feet.X),
		"y", int(feet.Y),
		"action", e.Action.Kind(),
		"at", e.Time)

	c.body.Preempt()

	switch a := e.Action.(type) {
	case Idle:
	case MoveTo:
		target := a.Target
		if a.Scene != "" && a.Scene != c.body.Scene() {
			if !c.body.PathfindToScene(a.Scene, &target) {
				c.log.Warn("No route for scheduled move", "agent", c.body.ID(), "scene", a.Scene)
			}
		} else if !c.body.PathfindTo(target, true) {
			c.log.Warn("No path for scheduled move", "agent", c.body.ID(), "x", target.X, "y", target.Y)
		}
	case NavigateToScene:
		if !c.body.PathfindToScene(a.Scene, a.Target) {
			c.log.Warn("No route for scheduled navigation", "agent", c.body.ID(), "scene", a.Scene)
		}
	}

	if c.OnStart != nil {
		c.OnStart(e)
	}
}

func (c *Controller) logWaiting(minute, idx int, ok bool) {
	if minute < c.lastWait {
		c.lastWait = -1
	}
	if c.lastWait >= 0 && minute-c.lastWait < waitLogInterval {
		return
	}
	c.lastWait = minute
	next := "none"
	if ok && idx+1 < len(c.sched.Entries) {
		next = c.sched.Entries[idx+1].Time
	} else if !ok {
		next = c.sched.Entries[0].Time
	}
	c.log.Debug("Schedule waiting", "agent", c.body.ID(), "time", clock.Format(minute), "next", next)
}
