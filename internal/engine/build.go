package engine

import (
	"fmt"
	"image/color"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

// BuildShapes converts the document's shapes, keeping painter's order.
func BuildShapes(doc *document.Document) ([]*shape.Shape, error) {
	out := make([]*shape.Shape, 0, len(doc.Shapes))
	for i := range doc.Shapes {
		s, err := BuildShape(&doc.Shapes[i])
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// BuildShape converts a single stored shape.
func BuildShape(d *document.ShapeData) (*shape.Shape, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", d.ID, err)
	}

	s := shape.New(id)
	s.Type = shape.ParseType(d.Type)
	s.Selrect = geom.Rect{X: d.Selrect[0], Y: d.Selrect[1], Width: d.Selrect[2], Height: d.Selrect[3]}
	if !s.Selrect.InRange() {
		return nil, fmt.Errorf("shape %s: selrect %v: %w", id, d.Selrect, geom.ErrOutOfRange)
	}
	if d.Transform != nil {
		s.Transform = geom.Matrix2D(*d.Transform)
		if !s.Transform.IsFinite() {
			return nil, fmt.Errorf("shape %s: transform %v: %w", id, *d.Transform, geom.ErrOutOfRange)
		}
	}
	s.Rotation = d.Rotation
	if d.ConstraintH != nil {
		s.ConstraintH = shape.ConstraintHFromByte(*d.ConstraintH)
	}
	if d.ConstraintV != nil {
		s.ConstraintV = shape.ConstraintVFromByte(*d.ConstraintV)
	}
	s.Hidden = d.Hidden
	s.Masked = d.Masked
	if d.Opacity != nil {
		s.Opacity = *d.Opacity
	}

	for _, c := range d.Children {
		cid, err := uuid.Parse(c)
		if err != nil {
			return nil, fmt.Errorf("parse child id %q: %w", c, err)
		}
		s.Children = append(s.Children, cid)
	}

	for _, fd := range d.Fills {
		f, err := buildFill(fd)
		if err != nil {
			return nil, err
		}
		s.AddFill(f)
	}
	for _, sd := range d.Strokes {
		f, err := buildFill(sd.Fill)
		if err != nil {
			return nil, err
		}
		s.AddStroke(shape.Stroke{Kind: strokeKind(sd.Kind), Width: sd.Width, Fill: f})
	}
	return s, nil
}

func buildFill(fd document.FillData) (shape.Fill, error) {
	switch fd.Type {
	case document.FillLinear, document.FillRadial:
		kind := shape.FillLinearGradient
		if fd.Type == document.FillRadial {
			kind = shape.FillRadialGradient
		}
		f := shape.Fill{Kind: kind, Gradient: &shape.Gradient{
			Start:   geom.Point{X: fd.Start[0], Y: fd.Start[1]},
			End:     geom.Point{X: fd.End[0], Y: fd.End[1]},
			Opacity: fd.Opacity,
			Width:   fd.Width,
		}}
		stops := make([]shape.Stop, 0, len(fd.Stops))
		for _, sd := range fd.Stops {
			c, err := document.ParseColor(sd.Color)
			if err != nil {
				return shape.Fill{}, fmt.Errorf("gradient stop: %w", err)
			}
			stops = append(stops, shape.Stop{Color: c, Offset: sd.Offset})
		}
		f.Gradient.Stops = stops
		return f, nil
	default:
		c, err := document.ParseColor(fd.Color)
		if err != nil {
			return shape.Fill{}, fmt.Errorf("fill: %w", err)
		}
		return shape.SolidFill(c), nil
	}
}

func strokeKind(s string) shape.StrokeKind {
	switch s {
	case "inner":
		return shape.StrokeInner
	case "outer":
		return shape.StrokeOuter
	default:
		return shape.StrokeCenter
	}
}

// ShapeData converts s back to its stored form. Colors are written as
// #rrggbbaa.
func ShapeData(s *shape.Shape) document.ShapeData {
	d := document.ShapeData{
		ID:       s.ID.String(),
		Type:     s.Type.String(),
		Selrect:  [4]float64{s.Selrect.X, s.Selrect.Y, s.Selrect.Width, s.Selrect.Height},
		Rotation: s.Rotation,
		Hidden:   s.Hidden,
		Masked:   s.Masked,
	}
	if !s.Transform.IsIdentity() {
		t := [6]float64(s.Transform)
		d.Transform = &t
	}
	if s.ConstraintH != nil {
		v := uint8(*s.ConstraintH)
		d.ConstraintH = &v
	}
	if s.ConstraintV != nil {
		v := uint8(*s.ConstraintV)
		d.ConstraintV = &v
	}
	if s.Opacity != 1 {
		o := s.Opacity
		d.Opacity = &o
	}
	for _, c := range s.Children {
		d.Children = append(d.Children, c.String())
	}
	for _, f := range s.Fills {
		d.Fills = append(d.Fills, fillData(f))
	}
	for _, st := range s.Strokes {
		kind := "center"
		switch st.Kind {
		case shape.StrokeInner:
			kind = "inner"
		case shape.StrokeOuter:
			kind = "outer"
		}
		d.Strokes = append(d.Strokes, document.StrokeData{Kind: kind, Width: st.Width, Fill: fillData(st.Fill)})
	}
	return d
}

func fillData(f shape.Fill) document.FillData {
	if f.Kind == shape.FillSolid || f.Gradient == nil {
		return document.FillData{Type: document.FillSolid, Color: hexColor(f.Color)}
	}
	fd := document.FillData{
		Type:    document.FillLinear,
		Start:   [2]float64{f.Gradient.Start.X, f.Gradient.Start.Y},
		End:     [2]float64{f.Gradient.End.X, f.Gradient.End.Y},
		Opacity: f.Gradient.Opacity,
		Width:   f.Gradient.Width,
	}
	if f.Kind == shape.FillRadialGradient {
		fd.Type = document.FillRadial
	}
	for _, st := range f.Gradient.Stops {
		fd.Stops = append(fd.Stops, document.StopData{Color: hexColor(st.Color), Offset: st.Offset})
	}
	return fd
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ViewboxFrom converts the stored viewbox.
func ViewboxFrom(v document.Viewbox) tiles.Viewbox {
	return tiles.Viewbox{
		Area: geom.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height},
		Zoom: v.Zoom,
	}
}
