// Package schedule parses NPC day plans and drives agents through them as
// the game clock advances.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/geom"
)

// Action is a scheduled activity. The set of actions is closed: Idle,
// MoveTo and NavigateToScene.
type Action interface {
	Kind() string
	isAction()
}

// Idle holds the agent in place until the next entry.
type Idle struct{}

// MoveTo walks to Target, first changing scenes when Scene is set and
// differs from the agent's scene.
type MoveTo struct {
	Scene  string
	Target geom.Point
}

// NavigateToScene travels to Scene, then to Target when one is given.
type NavigateToScene struct {
	Scene  string
	Target *geom.Point
}

func (Idle) Kind() string            { return "idle" }
func (MoveTo) Kind() string          { return "move_to" }
func (NavigateToScene) Kind() string { return "navigate_to_scene" }

func (Idle) isAction()            {}
func (MoveTo) isAction()          {}
func (NavigateToScene) isAction() {}

// Movement reports whether a completes by reaching a destination.
func Movement(a Action) bool {
	switch a.(type) {
	case MoveTo, NavigateToScene:
		return true
	default:
		return false
	}
}

// Entry is one timed action.
type Entry struct {
	Time   string
	Minute int
	Action Action
}

// Position is an NPC's starting point.
type Position struct {
	Scene string  `json:"scene"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Schedule is a parsed plan. Entries are sorted by Minute.
type Schedule struct {
	Entries         []Entry
	Loop            bool
	Speed           float64
	InitialPosition *Position
}

type rawEntry struct {
	Time        string   `json:"time,omitempty"`
	Action      string   `json:"action"`
	Scene       string   `json:"scene,omitempty"`
	TargetScene string   `json:"target_scene,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
}

type document struct {
	Speed           float64    `json:"speed,omitempty"`
	InitialPosition *Position  `json:"initial_position,omitempty"`
	Schedule        []rawEntry `json:"schedule"`
}

// Parse decodes a schedule document:
//
//	{"speed": 100, "initial_position": {"scene": "cafe", "x": 400, "y": 720},
//	 "schedule": [{"time": "08:00", "action": "idle"},
//	              {"time": "09:00", "action": "move_to", "x": 10, "y": 20},
//	              {"action": "loop"}]}
//
// A missing time means midnight and a missing action means idle.
func Parse(data []byte) (*Schedule, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	s := &Schedule{Speed: doc.Speed, InitialPosition: doc.InitialPosition}
	for i, raw := range doc.Schedule {
		kind := strings.ToLower(strings.TrimSpace(raw.Action))
		if kind == "loop" {
			s.Loop = true
			continue
		}
		entry, err := raw.entry(kind)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
		s.Entries = append(s.Entries, entry)
	}
	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].Minute < s.Entries[j].Minute
	})
	return s, nil
}

func (r rawEntry) entry(kind string) (Entry, error) {
	t := r.Time
	if t == "" {
		t = "00:00"
	}
	minute, err := clock.Parse(t)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Time: t, Minute: minute}

	switch kind {
	case "", "idle":
		e.Action = Idle{}
	case "move_to":
		if r.X == nil || r.Y == nil {
			return Entry{}, fmt.Errorf("move_to at %s is missing coordinates", t)
		}
		e.Action = MoveTo{Scene: r.Scene, Target: geom.Pt(*r.X, *r.Y)}
	case "navigate_to_scene":
		if r.TargetScene == "" {
			return Entry{}, fmt.Errorf("navigate_to_scene at %s is missing target_scene", t)
		}
		a := NavigateToScene{Scene: r.TargetScene}
		if r.X != nil && r.Y != nil {
			p := geom.Pt(*r.X, *r.Y)
			a.Target = &p
		}
		e.Action = a
	default:
		return Entry{}, fmt.Errorf("unknown action %q at %s", kind, t)
	}
	return e, nil
}

// Load reads and parses the schedule file at path.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Fallback is the schedule used when an NPC's schedule cannot be loaded:
// it idles all day.
func Fallback() *Schedule {
	return &Schedule{Entries: []Entry{{Time: "00:00", Minute: 0, Action: Idle{}}}}
}

// Resolve returns the index of the entry in effect at minute: the latest
// entry starting at or before minute. Before the first entry a looping
// schedule resolves to its first entry; otherwise nothing is in effect.
func (s *Schedule) Resolve(minute int) (int, bool) {
	if s == nil || len(s.Entries) == 0 {
		return -1, false
	}
	idx := -1
	for i, e := range s.Entries {
		if e.Minute > minute {
			break
		}
		idx = i
	}
	if idx < 0 {
		if !s.Loop {
			return -1, false
		}
		idx = 0
	}
	return idx, true
}

// MarshalJSON writes the schedule back in its document form.
func (s *Schedule) MarshalJSON() ([]byte, error) {
	doc := document{Speed: s.Speed, InitialPosition: s.InitialPosition}
	for _, e := range s.Entries {
		raw := rawEntry{Time: e.Time, Action: e.Action.Kind()}
		switch a := e.Action.(type) {
		case MoveTo:
			raw.Scene = a.Scene
			raw.X, raw.Y = &a.Target.X, &a.Target.Y
		case NavigateToScene:
			raw.TargetScene = a.Scene
			if a.Target != nil {
				raw.X, raw.Y = &a.Target.X, &a.Target.Y
			}
		case Idle:
		}
		doc.Schedule = append(doc.Schedule, raw)
	}
	if s.Loop {
		doc.Schedule = append(doc.Schedule, rawEntry{Action: "loop"})
	}
	return json.Marshal(doc)
}
