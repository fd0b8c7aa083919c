package shape

import (
	"errors"
	"image/color"

	"github.com/inamate/inamate/render-core/internal/geom"
)

var (
	ErrNoFill      = errors.New("shape has no fills")
	ErrNotGradient = errors.New("active fill is not a gradient")
	ErrNoStroke    = errors.New("shape has no strokes")
)

// FillKind selects how a Fill paints.
type FillKind uint8

const (
	FillSolid FillKind = iota
	FillLinearGradient
	FillRadialGradient
)

// Stop is a gradient color stop. Offset is in [0, 1].
type Stop struct {
	Color  color.NRGBA
	Offset float64
}

// Gradient describes a linear or radial gradient in selrect-relative
// coordinates.
type Gradient struct {
	Start   geom.Point
	End     geom.Point
	Opacity float64
	Width   float64
	Stops   []Stop
}

// Fill is a paint source. Gradient is nil for solid fills.
type Fill struct {
	Kind     FillKind
	Color    color.NRGBA
	Gradient *Gradient
}

// SolidFill returns a solid fill of c.
func SolidFill(c color.NRGBA) Fill { return Fill{Kind: FillSolid, Color: c} }

func (f Fill) isGradient() bool {
	return f.Kind != FillSolid && f.Gradient != nil
}

// StrokeKind places the stroke relative to the outline.
type StrokeKind uint8

const (
	StrokeCenter StrokeKind = iota
	StrokeInner
	StrokeOuter
)

// Stroke is an outline paint.
type Stroke struct {
	Kind  StrokeKind
	Width float64
	Fill  Fill
}

func (s *Shape) AddFill(f Fill) { s.Fills = append(s.Fills, f) }
func (s *Shape) ClearFills()    { s.Fills = nil }

// AddFillGradientStops appends stops to the last fill.
func (s *Shape) AddFillGradientStops(stops []Stop) error {
	if len(s.Fills) == 0 {
		return ErrNoFill
	}
	return addStops(&s.Fills[len(s.Fills)-1], stops)
}

func (s *Shape) AddStroke(st Stroke) { s.Strokes = append(s.Strokes, st) }
func (s *Shape) ClearStrokes()       { s.Strokes = nil }

// SetStrokeFill replaces the paint of the last stroke.
func (s *Shape) SetStrokeFill(f Fill) error {
	if len(s.Strokes) == 0 {
		return ErrNoStroke
	}
	s.Strokes[len(s.Strokes)-1].Fill = f
	return nil
}

// AddStrokeGradientStops appends stops to the paint of the last stroke.
func (s *Shape) AddStrokeGradientStops(stops []Stop) error {
	if len(s.Strokes) == 0 {
		return ErrNoStroke
	}
	return addStops(&s.Strokes[len(s.Strokes)-1].Fill, stops)
}

func addStops(f *Fill, stops []Stop) error {
	if !f.isGradient() {
		return ErrNotGradient
	}
	f.Gradient.Stops = append(f.Gradient.Stops, stops...)
	return nil
}
