package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/geom"
)

// Manifest is the world.yaml document listing every NPC and prop.
type Manifest struct {
	Name        string           `yaml:"name"`
	ActiveScene string           `yaml:"active_scene,omitempty"`
	StartTime   string           `yaml:"start_time,omitempty"` // "HH:MM"
	NPCs        []NPCDefinition  `yaml:"npcs"`
	Props       []PropDefinition `yaml:"props,omitempty"`

	// StatTemplates are base stat blocks keyed by NPC type.
	StatTemplates map[string]*actor.StatBlock `yaml:"stat_templates,omitempty"`
}

// NPCDefinition is the static description of one NPC.
type NPCDefinition struct {
	ID           string           `yaml:"id"`
	Type         string           `yaml:"type"`                   // also the default behavior preset
	InitialScene string           `yaml:"initial_scene,omitempty"` // falls back to the schedule's initial position
	X            *float64         `yaml:"x,omitempty"`
	Y            *float64         `yaml:"y,omitempty"`
	Speed        float64          `yaml:"speed,omitempty"`
	Behavior     string           `yaml:"behavior,omitempty"` // preset name
	Schedule     string           `yaml:"schedule,omitempty"` // path under npcs/, defaults to <id>.json
	NoSchedule   bool             `yaml:"no_schedule,omitempty"`
	FeetOffset   *geom.Point      `yaml:"feet_offset,omitempty"`
	Stats        *actor.StatBlock `yaml:"stats,omitempty"`
}

// PropDefinition places a prop. Props block NPC movement until picked up.
type PropDefinition struct {
	ID       string `yaml:"id"`
	Scene    string `yaml:"scene"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	PickedUp bool   `yaml:"picked_up,omitempty"`
}

// Bounds is the prop's bounding box.
func (p PropDefinition) Bounds() geom.Rect {
	return geom.Rect{X: p.X, Y: p.Y, W: p.Width, H: p.Height}
}

// BehaviorPreset is the preset name to use for the NPC.
func (d NPCDefinition) BehaviorPreset() string {
	if d.Behavior != "" {
		return d.Behavior
	}
	return d.Type
}

// ScheduleFile is the schedule path relative to the npcs directory, or ""
// when the NPC has none.
func (d NPCDefinition) ScheduleFile() string {
	if d.NoSchedule {
		return ""
	}
	if d.Schedule != "" {
		return d.Schedule
	}
	return d.ID + ".json"
}

// StatsFor is the NPC's stat block: its type's template with the NPC's own
// stats applied on top. Nil when neither exists.
func (m *Manifest) StatsFor(d NPCDefinition) *actor.StatBlock {
	return actor.Merge(m.StatTemplates[d.Type], d.Stats)
}

// ParseManifest decodes and checks a world.yaml document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	ids := make(map[string]bool, len(m.NPCs))
	for i, n := range m.NPCs {
		if n.ID == "" {
			return fmt.Errorf("npc %d is missing an id", i)
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate npc id %q", n.ID)
		}
		ids[n.ID] = true
		if (n.X == nil) != (n.Y == nil) {
			return fmt.Errorf("npc %s: x and y must be given together", n.ID)
		}
		if n.Speed < 0 {
			return fmt.Errorf("npc %s: speed must not be negative", n.ID)
		}
	}
	props := make(map[string]bool, len(m.Props))
	for i, p := range m.Props {
		if p.ID == "" {
			return fmt.Errorf("prop %d is missing an id", i)
		}
		if props[p.ID] {
			return fmt.Errorf("duplicate prop id %q", p.ID)
		}
		props[p.ID] = true
		if p.Scene == "" {
			return fmt.Errorf("prop %s is missing a scene", p.ID)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("prop %s needs a positive width and height", p.ID)
		}
	}
	return nil
}
