package shape

import "github.com/inamate/inamate/render-core/internal/geom"

// ApplyTransform folds m into the shape. The selrect is re-centered on the
// mapped center and resized to the transformed quad's edge lengths, and
// Transform becomes the pure linear part that turns the new selrect back
// into that quad. Collapsed results fall back to the identity transform.
//
// Path geometry is kept in selrect space, so nothing else needs to move.
func (s *Shape) ApplyTransform(m geom.Matrix2D) {
	center := m.MapPoint(s.Center())
	bounds := s.Bounds().Transform(m)

	t, ok := bounds.TransformMatrix()
	if !ok {
		t = geom.Identity()
	}
	s.Transform = t

	w, h := bounds.Width(), bounds.Height()
	s.Selrect = geom.Rect{
		X:      center.X - w/2,
		Y:      center.Y - h/2,
		Width:  w,
		Height: h,
	}
}
