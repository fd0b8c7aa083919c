// Package geom holds the geometry primitives of the render core: rays,
// oriented bounding quads, axis-aligned rects and affine matrices.
//
// Coordinates are canvas coordinates with y growing downwards.
package geom

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// Epsilon is the determinant threshold below which two directions are
// treated as parallel. It is the float32 machine epsilon so that
// degeneracy decisions match single precision callers.
const Epsilon = 0x1p-23

// Point is a position in canvas space.
type Point = vec.Vec2

// Vector is a displacement in canvas space.
type Vector = vec.Vec2

// VectorBetween returns the vector from a to b.
func VectorBetween(a, b Point) Vector {
	return b.Sub(a)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return b.Sub(a).Length()
}

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b Vector) float64 {
	return a.X*b.Y - a.Y*b.X
}

// Normalize returns v scaled to unit length, or v itself if it has zero
// length.
func Normalize(v Vector) Vector {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

// Ray is an infinite parametric line Origin + t*Direction.
type Ray struct {
	Origin    Point
	Direction Vector
}

// NewRay returns the ray through origin along direction.
func NewRay(origin Point, direction Vector) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At evaluates the ray at parameter t.
func (r Ray) At(t float64) Point {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IsPositiveSide evaluates the implicit line equation a*x + b*y + c with
// a = dy, b = -dx, c = dx*oy - dy*ox and reports whether p gives a negative
// value. The naming follows the sign convention used by the edge distance
// queries on Bounds.
func (r Ray) IsPositiveSide(p Point) bool {
	a := r.Direction.Y
	b := -r.Direction.X
	c := r.Direction.X*r.Origin.Y - r.Direction.Y*r.Origin.X
	return p.X*a+p.Y*b+c < 0
}

// IntersectT returns the parameter along r1 at which r1 crosses r2.
// Parallel and coincident rays report false; the two cases are not
// distinguished.
func IntersectT(r1, r2 Ray) (float64, bool) {
	det := Cross(r1.Direction, r2.Direction)
	if math.Abs(det) < Epsilon {
		return 0, false
	}
	diff := r2.Origin.Sub(r1.Origin)
	return Cross(diff, r2.Direction) / det, true
}

// Intersect returns the point where r1 and r2 cross.
func Intersect(r1, r2 Ray) (Point, bool) {
	t, ok := IntersectT(r1, r2)
	if !ok {
		return Point{}, false
	}
	return r1.At(t), true
}
