package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect_Intersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, true},
		{"touching edges do not overlap", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, false},
		{"contained", Rect{0, 0, 100, 100}, Rect{40, 40, 2, 2}, true},
		{"empty", Rect{0, 0, 0, 10}, Rect{0, 0, 10, 10}, false},
		{"disjoint", Rect{0, 0, 5, 5}, Rect{50, 50, 5, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a))
		})
	}
}

func TestRect_UnionAndCenter(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 1, H: 1}.Union(Rect{X: 20, Y: 14, W: 1, H: 1})
	assert.Equal(t, Rect{X: 10, Y: 10, W: 11, H: 5}, r)

	cx, cy := Rect{X: 0, Y: 0, W: 20, H: 10}.Center()
	assert.Equal(t, 10, cx)
	assert.Equal(t, 5, cy)
}

func TestRectAround(t *testing.T) {
	r := RectAround(Pt(50, 50), 10, 10)
	assert.Equal(t, Rect{X: 45, Y: 45, W: 10, H: 10}, r)
	assert.True(t, r.Contains(50, 50))
}

func TestPoint_Dist(t *testing.T) {
	assert.InDelta(t, 5.0, Pt(0, 0).Dist(Pt(3, 4)), 1e-9)
}
