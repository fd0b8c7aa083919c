package geom

import "math"

// Bounds is an oriented bounding quad. The corners are the image of an
// axis-aligned rect under an affine transform, so opposite edges are
// parallel and of equal length. Nothing re-validates that after Transform;
// callers must only apply affine matrices.
type Bounds struct {
	NW Point
	NE Point
	SE Point
	SW Point
}

// NewBounds builds bounds from corners in NW, NE, SE, SW order.
func NewBounds(nw, ne, se, sw Point) Bounds {
	return Bounds{NW: nw, NE: ne, SE: se, SW: sw}
}

// HorizontalVec is the NW→NE edge.
func (b Bounds) HorizontalVec() Vector {
	return VectorBetween(b.NW, b.NE)
}

// VerticalVec is the NW→SW edge.
func (b Bounds) VerticalVec() Vector {
	return VectorBetween(b.NW, b.SW)
}

// HV returns the horizontal direction scaled to length s.
func (b Bounds) HV(s float64) Vector {
	return Normalize(b.HorizontalVec()).Mul(s)
}

// VV returns the vertical direction scaled to length s.
func (b Bounds) VV(s float64) Vector {
	return Normalize(b.VerticalVec()).Mul(s)
}

func (b Bounds) Width() float64  { return Distance(b.NW, b.NE) }
func (b Bounds) Height() float64 { return Distance(b.NW, b.SW) }

// Center is the midpoint of the NW–SE diagonal.
func (b Bounds) Center() Point {
	return Point{X: (b.NW.X + b.SE.X) / 2, Y: (b.NW.Y + b.SE.Y) / 2}
}

// Corners returns the corners in NW, NE, SE, SW order.
func (b Bounds) Corners() [4]Point {
	return [4]Point{b.NW, b.NE, b.SE, b.SW}
}

// Transform maps every corner through m.
func (b Bounds) Transform(m Matrix2D) Bounds {
	return Bounds{
		NW: m.MapPoint(b.NW),
		NE: m.MapPoint(b.NE),
		SE: m.MapPoint(b.SE),
		SW: m.MapPoint(b.SW),
	}
}

// ApproxEqual compares corners component-wise within eps.
func (b Bounds) ApproxEqual(other Bounds, eps float64) bool {
	c1, c2 := b.Corners(), other.Corners()
	for i := range c1 {
		if math.Abs(c1[i].X-c2[i].X) > eps || math.Abs(c1[i].Y-c2[i].Y) > eps {
			return false
		}
	}
	return true
}

// BoxBounds returns the smallest quad aligned to b's orientation that
// contains every corner of b and of other. Each corner is projected onto
// the horizontal and vertical axis rays anchored at b.NW; the extreme
// parameters are turned back into corners. ok is false when any of the
// projections is degenerate.
//
// b's own corners are projected too, so the result always contains b.
// Projecting only other's corners would shrink the box to other when other
// lies inside b; see "Open Question decisions" in DESIGN.md.
func (b Bounds) BoxBounds(other Bounds) (Bounds, bool) {
	hv := b.HorizontalVec()
	vv := b.VerticalVec()

	hr := NewRay(b.NW, hv)
	vr := NewRay(b.NW, vv)

	own, theirs := b.Corners(), other.Corners()
	corners := append(own[:], theirs[:]...)
	hts := make([]float64, len(corners))
	vts := make([]float64, len(corners))
	for i, c := range corners {
		ht, ok := IntersectT(hr, NewRay(c, vv))
		if !ok {
			return Bounds{}, false
		}
		vt, ok := IntersectT(vr, NewRay(c, hv))
		if !ok {
			return Bounds{}, false
		}
		hts[i], vts[i] = ht, vt
	}

	minHT, maxHT := minMax(hts)
	minVT, maxVT := minMax(vts)

	corner := func(ht, vt float64) (Point, bool) {
		return Intersect(NewRay(hr.At(ht), vv), NewRay(vr.At(vt), hv))
	}

	nw, ok := corner(minHT, minVT)
	if !ok {
		return Bounds{}, false
	}
	ne, ok := corner(maxHT, minVT)
	if !ok {
		return Bounds{}, false
	}
	sw, ok := corner(minHT, maxVT)
	if !ok {
		return Bounds{}, false
	}
	se, ok := corner(maxHT, maxVT)
	if !ok {
		return Bounds{}, false
	}

	return Bounds{NW: nw, NE: ne, SE: se, SW: sw}, true
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Left is the signed distance from p to the west edge, measured along the
// horizontal direction. Points inside the quad are positive.
func (b Bounds) Left(p Point) float64 {
	hr := NewRay(p, b.HorizontalVec())
	vr := NewRay(b.NW, b.VerticalVec())
	proj, ok := Intersect(hr, vr)
	if !ok {
		return 0
	}
	if vr.IsPositiveSide(p) {
		return -Distance(proj, p)
	}
	return Distance(proj, p)
}

// Right is the signed distance from p to the east edge.
func (b Bounds) Right(p Point) float64 {
	hr := NewRay(p, b.HorizontalVec())
	vr := NewRay(b.NE, b.VerticalVec())
	proj, ok := Intersect(hr, vr)
	if !ok {
		return 0
	}
	if vr.IsPositiveSide(p) {
		return Distance(proj, p)
	}
	return -Distance(proj, p)
}

// Top is the signed distance from p to the north edge, measured along the
// vertical direction.
func (b Bounds) Top(p Point) float64 {
	vr := NewRay(p, b.VerticalVec())
	hr := NewRay(b.NW, b.HorizontalVec())
	proj, ok := Intersect(vr, hr)
	if !ok {
		return 0
	}
	if hr.IsPositiveSide(p) {
		return Distance(proj, p)
	}
	return -Distance(proj, p)
}

// Bottom is the signed distance from p to the south edge.
func (b Bounds) Bottom(p Point) float64 {
	vr := NewRay(p, b.VerticalVec())
	hr := NewRay(b.SW, b.HorizontalVec())
	proj, ok := Intersect(vr, hr)
	if !ok {
		return 0
	}
	if hr.IsPositiveSide(p) {
		return -Distance(proj, p)
	}
	return Distance(proj, p)
}

// TransformMatrix returns the linear matrix that maps an axis-aligned rect
// of size Width x Height, centered on the origin, onto b centered on the
// origin. Its columns are the edge directions divided by the edge lengths.
// ok is false for collapsed quads.
func (b Bounds) TransformMatrix() (Matrix2D, bool) {
	w, h := b.Width(), b.Height()
	if w < Epsilon || h < Epsilon {
		return Identity(), false
	}

	hv := b.HorizontalVec()
	vv := b.VerticalVec()
	m := Matrix2D{hv.X / w, hv.Y / w, vv.X / h, vv.Y / h, 0, 0}
	if math.Abs(m.Determinant()) < Epsilon {
		return Identity(), false
	}
	return m, true
}

// Rect returns the axis-aligned rect enclosing the quad.
func (b Bounds) Rect() Rect {
	c := b.Corners()
	xs := []float64{c[0].X, c[1].X, c[2].X, c[3].X}
	ys := []float64{c[0].Y, c[1].Y, c[2].Y, c[3].Y}
	minX, maxX := minMax(xs)
	minY, maxY := minMax(ys)
	return RectFromLTRB(minX, minY, maxX, maxY)
}

// ContainsPoint reports whether p lies inside the quad or on its edges. A
// point is inside when it is on the inner side of both edges of each
// opposite pair, which holds for mirrored quads as well. Collapsed quads
// contain nothing.
func (b Bounds) ContainsPoint(p Point) bool {
	if b.Width() < Epsilon || b.Height() < Epsilon {
		return false
	}
	return b.Left(p)*b.Right(p) >= 0 && b.Top(p)*b.Bottom(p) >= 0
}
