// Package mask classifies scene pixels from a collision mask image and
// answers walkability and portal queries against it.
//
// Mask colors: opaque black is walkable floor, opaque white is a portal
// (portals are walkable too), everything else, including fully transparent
// pixels, is blocked.
package mask

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"os"

	"github.com/jwebster45206/npc-engine/pkg/geom"
)

// Class is the classification of a single mask pixel.
type Class uint8

const (
	Blocked Class = iota
	Walkable
	Portal
)

func (c Class) String() string {
	switch c {
	case Walkable:
		return "walkable"
	case Portal:
		return "portal"
	default:
		return "blocked"
	}
}

// Region is one 4-connected component of portal pixels.
type Region struct {
	ID     int       `json:"id"`
	Bounds geom.Rect `json:"bounds"`
	Pixels int       `json:"pixels"`
}

// Mask is an immutable classified pixel grid with its portal regions.
type Mask struct {
	width   int
	height  int
	class   []Class
	region  []int32
	regions []Region
}

// ClassifyColor maps a mask color to a pixel class.
func ClassifyColor(c color.Color) Class {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return Blocked
	}
	switch {
	case n.R == 0 && n.G == 0 && n.B == 0:
		return Walkable
	case n.R == 255 && n.G == 255 && n.B == 255:
		return Portal
	default:
		return Blocked
	}
}

// New builds a mask of the given size using classify for every pixel.
func New(width, height int, classify func(x, y int) Class) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	m := &Mask{
		width:  width,
		height: height,
		class:  make([]Class, width*height),
		region: make([]int32, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.class[y*width+x] = classify(x, y)
		}
	}
	m.discoverRegions()
	return m
}

// FromImage classifies every pixel of img. The image origin is mapped to (0, 0).
func FromImage(img image.Image) *Mask {
	b := img.Bounds()
	return New(b.Dx(), b.Dy(), func(x, y int) Class {
		return ClassifyColor(img.At(b.Min.X+x, b.Min.Y+y))
	})
}

// Decode reads an encoded mask image (PNG).
func Decode(r io.Reader) (*Mask, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask image: %w", err)
	}
	return FromImage(img), nil
}

// Load reads and classifies the mask image at path.
func Load(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// discoverRegions labels portal pixels with region ids. Regions are found in
// row-major order so ids are stable for a given image.
func (m *Mask) discoverRegions() {
	for i := range m.region {
		m.region[i] = -1
	}
	var stack []int
	for start := range m.class {
		if m.class[start] != Portal || m.region[start] >= 0 {
			continue
		}
		id := len(m.regions)
		sx, sy := start%m.width, start/m.width
		bounds := geom.Rect{X: sx, Y: sy, W: 1, H: 1}
		pixels := 0

		m.region[start] = int32(id)
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.width, i/m.width
			pixels++
			bounds = bounds.Union(geom.Rect{X: x, Y: y, W: 1, H: 1})

			for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
				if !m.inBounds(n[0], n[1]) {
					continue
				}
				j := n[1]*m.width + n[0]
				if m.class[j] == Portal && m.region[j] < 0 {
					m.region[j] = int32(id)
					stack = append(stack, j)
				}
			}
		}
		m.regions = append(m.regions, Region{ID: id, Bounds: bounds, Pixels: pixels})
	}
}

func (m *Mask) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

func (m *Mask) Width() int  { return m.width }
func (m *Mask) Height() int { return m.height }

// ClassAt classifies pixel (x, y). Points outside the mask are Blocked.
func (m *Mask) ClassAt(x, y int) Class {
	if m == nil || !m.inBounds(x, y) {
		return Blocked
	}
	return m.class[y*m.width+x]
}

// IsWalkable reports whether an agent may stand on (x, y). Portal pixels are walkable.
func (m *Mask) IsWalkable(x, y int) bool {
	return m.ClassAt(x, y) != Blocked
}

// PortalAt returns the id of the portal region containing (x, y).
func (m *Mask) PortalAt(x, y int) (int, bool) {
	if m == nil || !m.inBounds(x, y) {
		return 0, false
	}
	id := m.region[y*m.width+x]
	if id < 0 {
		return 0, false
	}
	return int(id), true
}

// PointInPortal reports whether (x, y) belongs to portal region id.
func (m *Mask) PointInPortal(x, y, id int) bool {
	got, ok := m.PortalAt(x, y)
	return ok && got == id
}

// PortalBounds returns the bounding rectangle of a portal region.
func (m *Mask) PortalBounds(id int) (geom.Rect, bool) {
	if m == nil || id < 0 || id >= len(m.regions) {
		return geom.Rect{}, false
	}
	return m.regions[id].Bounds, true
}

// Portals returns every portal region ordered by id.
func (m *Mask) Portals() []Region {
	if m == nil {
		return nil
	}
	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

// RectCollides reports whether r overlaps blocked space. Only the four
// corners and the center are sampled, so thin obstacles can slip between
// samples of a large rectangle.
func (m *Mask) RectCollides(r geom.Rect) bool {
	cx, cy := r.Center()
	samples := [5][2]int{
		{r.Left(), r.Top()},
		{r.Right() - 1, r.Top()},
		{r.Left(), r.Bottom() - 1},
		{r.Right() - 1, r.Bottom() - 1},
		{cx, cy},
	}
	for _, s := range samples {
		if !m.IsWalkable(s[0], s[1]) {
			return true
		}
	}
	return false
}

// RectInPortal returns the portal under the center of r.
func (m *Mask) RectInPortal(r geom.Rect) (int, bool) {
	cx, cy := r.Center()
	return m.PortalAt(cx, cy)
}
