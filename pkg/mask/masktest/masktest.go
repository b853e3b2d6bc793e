// Package masktest builds collision masks from ASCII art for tests.
package masktest

import (
	"image"
	"image/color"

	"github.com/jwebster45206/npc-engine/pkg/mask"
)

var (
	Floor = color.NRGBA{A: 255}
	Door  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Wall  = color.NRGBA{R: 255, A: 255}
)

// Image renders rows into an NRGBA image where every character covers a
// cell x cell block. '.' is floor, 'P' is portal, ' ' is transparent and
// anything else is wall.
func Image(cell int, rows ...string) *image.NRGBA {
	if cell < 1 {
		cell = 1
	}
	w := 0
	for _, r := range rows {
		w = max(w, len(r))
	}
	img := image.NewNRGBA(image.Rect(0, 0, w*cell, len(rows)*cell))
	for ry, row := range rows {
		for rx := 0; rx < w; rx++ {
			ch := byte(' ')
			if rx < len(row) {
				ch = row[rx]
			}
			var c color.NRGBA
			switch ch {
			case '.':
				c = Floor
			case 'P':
				c = Door
			case ' ':
				c = color.NRGBA{}
			default:
				c = Wall
			}
			for y := ry * cell; y < (ry+1)*cell; y++ {
				for x := rx * cell; x < (rx+1)*cell; x++ {
					img.SetNRGBA(x, y, c)
				}
			}
		}
	}
	return img
}

// FromASCII classifies Image(cell, rows...).
func FromASCII(cell int, rows ...string) *mask.Mask {
	return mask.FromImage(Image(cell, rows...))
}

// Open returns a fully walkable w x h mask.
func Open(w, h int) *mask.Mask {
	return mask.New(w, h, func(int, int) mask.Class { return mask.Walkable })
}
