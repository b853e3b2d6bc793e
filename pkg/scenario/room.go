package scenario

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
)

// Room is a scene document from rooms/<scene>.json.
type Room struct {
	SceneName  string   `json:"scene_name"`
	Background string   `json:"background"`      // image path relative to the data dir
	Mask       string   `json:"mask,omitempty"`  // overrides the path derived from Background
	Scale      float64  `json:"scale,omitempty"` // sprite scale used by the renderer
	Portals    []Portal `json:"portals,omitempty"`
	FileName   string   `json:"-"`
}

// Portal links a mask portal region to a spawn point in another scene.
type Portal struct {
	ID      int        `json:"id"`
	ToScene string     `json:"to_scene"`
	Spawn   [2]float64 `json:"spawn"` // [x, y] feet position in ToScene
}

// ParseRoom decodes and checks a room document.
func ParseRoom(data []byte) (*Room, error) {
	var r Room
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Room) Validate() error {
	if r.SceneName == "" {
		return fmt.Errorf("room is missing scene_name")
	}
	seen := make(map[int]bool, len(r.Portals))
	for _, p := range r.Portals {
		if p.ID < 0 {
			return fmt.Errorf("room %s: portal id %d is negative", r.SceneName, p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("room %s: duplicate portal id %d", r.SceneName, p.ID)
		}
		seen[p.ID] = true
		if p.ToScene == "" {
			return fmt.Errorf("room %s: portal %d is missing to_scene", r.SceneName, p.ID)
		}
	}
	return nil
}

// MaskPath is the collision mask image for the room: the background path
// with its extension replaced by "_mask.png".
func (r *Room) MaskPath() string {
	if r.Mask != "" {
		return r.Mask
	}
	if r.Background == "" {
		return ""
	}
	ext := filepath.Ext(r.Background)
	return strings.TrimSuffix(r.Background, ext) + "_mask.png"
}

// PortalMap converts the portal list for scene graph registration.
func (r *Room) PortalMap() map[int]scenegraph.PortalConfig {
	m := make(map[int]scenegraph.PortalConfig, len(r.Portals))
	for _, p := range r.Portals {
		m[p.ID] = scenegraph.PortalConfig{ToScene: p.ToScene, Spawn: geom.Pt(p.Spawn[0], p.Spawn[1])}
	}
	return m
}

// DisplayName turns a scene key like "cat_cafe_kitchen" into "Cat Cafe Kitchen".
func DisplayName(scene string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(scene))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
