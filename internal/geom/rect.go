package geom

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/rect"
)

// MaxCoordinate bounds every canvas coordinate and extent the render core
// accepts.
const MaxCoordinate = 1 << 24

// ErrOutOfRange is returned for geometry that is not finite or exceeds
// MaxCoordinate.
var ErrOutOfRange = errors.New("geometry out of range")

// Rect represents an axis-aligned rectangle. Selection rectangles of shapes
// are stored in this form, before the shape transform is applied.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectFromLTRB builds a rect from its edges. Inverted edges produce a
// negative width or height, matching how selection rects arrive from the
// document.
func RectFromLTRB(left, top, right, bottom float64) Rect {
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// InRange reports whether every field is finite and within MaxCoordinate.
func (r Rect) InRange() bool {
	for _, v := range [4]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.Abs(v) > MaxCoordinate {
			return false
		}
	}
	return true
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Corners returns the rect as an (axis-aligned) Bounds.
func (r Rect) Corners() Bounds {
	return Bounds{
		NW: Point{X: r.X, Y: r.Y},
		NE: Point{X: r.X + r.Width, Y: r.Y},
		SE: Point{X: r.X + r.Width, Y: r.Y + r.Height},
		SW: Point{X: r.X, Y: r.Y + r.Height},
	}
}

// Box converts r to a lower-left/upper-right rect, normalising inverted
// edges.
func (r Rect) Box() rect.Rect {
	return rect.Rect{
		LLx: min(r.Left(), r.Right()),
		LLy: min(r.Top(), r.Bottom()),
		URx: max(r.Left(), r.Right()),
		URy: max(r.Top(), r.Bottom()),
	}
}
