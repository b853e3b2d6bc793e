package actor

import (
	"fmt"
	"maps"

	"github.com/jwebster45206/d20"
)

// SpeedAttribute is the d20 attribute that carries an NPC's walking speed
// in pixels per second.
const SpeedAttribute = "speed"

// StatBlock is an optional rules-engine profile attached to an NPC.
type StatBlock struct {
	AC         int            `json:"ac,omitempty" yaml:"ac,omitempty"`
	HP         int            `json:"hp,omitempty" yaml:"hp,omitempty"`
	MaxHP      int            `json:"max_hp" yaml:"max_hp"`
	Attributes map[string]int `json:"attributes,omitempty" yaml:"attributes,omitempty"` // e.g. "speed": 120
}

// Merge returns template with any non-zero fields of overrides applied.
// Attribute maps are merged key by key.
func Merge(template, overrides *StatBlock) *StatBlock {
	if template == nil {
		return overrides
	}
	if overrides == nil {
		return template
	}
	s := *template
	if overrides.AC != 0 {
		s.AC = overrides.AC
	}
	if overrides.HP != 0 {
		s.HP = overrides.HP
	}
	if overrides.MaxHP != 0 {
		s.MaxHP = overrides.MaxHP
	}
	s.Attributes = make(map[string]int, len(template.Attributes)+len(overrides.Attributes))
	maps.Copy(s.Attributes, template.Attributes)
	maps.Copy(s.Attributes, overrides.Attributes)
	return &s
}

// Build creates the d20 actor for id. HP defaults to MaxHP.
func (s *StatBlock) Build(id string) (*d20.Actor, error) {
	if s.MaxHP <= 0 {
		return nil, fmt.Errorf("stat block for %s needs a positive max_hp", id)
	}
	attrs := make(map[string]int, len(s.Attributes))
	maps.Copy(attrs, s.Attributes)

	a, err := d20.NewActor(id).
		WithHP(s.MaxHP).
		WithAC(s.AC).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	if s.HP > 0 && s.HP != s.MaxHP {
		if err := a.SetHP(s.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return a, nil
}

// Speed reads the speed attribute of a built actor.
func Speed(a *d20.Actor) (float64, bool) {
	if a == nil {
		return 0, false
	}
	v, ok := a.Attribute(SpeedAttribute)
	if !ok || v <= 0 {
		return 0, false
	}
	return float64(v), true
}
