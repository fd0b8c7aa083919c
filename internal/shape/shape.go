// Package shape holds the per-element state the tile renderer works with:
// selection rect, transform, styling and hierarchy.
package shape

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/geom"
)

// ErrUnknownShape is returned when an operation names an id that is not
// loaded.
var ErrUnknownShape = errors.New("unknown shape")

// Type is the kind of element. Values match the wire byte.
type Type uint8

const (
	TypeFrame Type = iota
	TypeGroup
	TypeBool
	TypeRect
	TypePath
	TypeText
	TypeCircle
	TypeSVGRaw
)

var typeNames = [...]string{"frame", "group", "bool", "rect", "path", "text", "circle", "svg-raw"}

// TypeFromByte decodes a wire byte. Unknown values are treated as rects.
func TypeFromByte(b byte) Type {
	if int(b) >= len(typeNames) {
		return TypeRect
	}
	return Type(b)
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType maps a document type name to a Type. Unknown names are rects.
func ParseType(s string) Type {
	for i, name := range typeNames {
		if name == s {
			return Type(i)
		}
	}
	return TypeRect
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}

// ConstraintH is a horizontal layout constraint.
type ConstraintH uint8

const (
	ConstraintLeft ConstraintH = iota
	ConstraintRight
	ConstraintLeftRight
	ConstraintHCenter
	ConstraintHScale
)

// ConstraintHFromByte decodes a wire byte; unknown values give nil.
func ConstraintHFromByte(b byte) *ConstraintH {
	if b > byte(ConstraintHScale) {
		return nil
	}
	c := ConstraintH(b)
	return &c
}

// ConstraintV is a vertical layout constraint.
type ConstraintV uint8

const (
	ConstraintTop ConstraintV = iota
	ConstraintBottom
	ConstraintTopBottom
	ConstraintVCenter
	ConstraintVScale
)

// ConstraintVFromByte decodes a wire byte; unknown values give nil.
func ConstraintVFromByte(b byte) *ConstraintV {
	if b > byte(ConstraintVScale) {
		return nil
	}
	c := ConstraintV(b)
	return &c
}

// Shape is a single element of the document.
type Shape struct {
	ID      uuid.UUID
	Type    Type
	Selrect geom.Rect
	// Transform is applied around the selrect center.
	Transform geom.Matrix2D
	Rotation  float64

	ConstraintH *ConstraintH
	ConstraintV *ConstraintV

	Hidden   bool
	Clip     bool
	Masked   bool
	Opacity  float64
	Children []uuid.UUID

	Fills   []Fill
	Strokes []Stroke
}

// New returns a visible, untransformed rect with an empty selrect.
func New(id uuid.UUID) *Shape {
	return &Shape{
		ID:        id,
		Type:      TypeRect,
		Transform: geom.Identity(),
		Clip:      true,
		Opacity:   1,
	}
}

func (s *Shape) ElementID() uuid.UUID     { return s.ID }
func (s *Shape) SelectionRect() geom.Rect { return s.Selrect }

// Center returns the selrect center, the pivot of Transform.
func (s *Shape) Center() geom.Point { return s.Selrect.Center() }

// SetSelrect sets the selection rect from its edges.
func (s *Shape) SetSelrect(left, top, right, bottom float64) {
	s.Selrect = geom.RectFromLTRB(left, top, right, bottom)
}

// ConstraintHOr returns the horizontal constraint, or def when none is set.
func (s *Shape) ConstraintHOr(def ConstraintH) ConstraintH {
	if s.ConstraintH == nil {
		return def
	}
	return *s.ConstraintH
}

// ConstraintVOr returns the vertical constraint, or def when none is set.
func (s *Shape) ConstraintVOr(def ConstraintV) ConstraintV {
	if s.ConstraintV == nil {
		return def
	}
	return *s.ConstraintV
}

// IsFrame reports whether the shape is a frame.
func (s *Shape) IsFrame() bool { return s.Type == TypeFrame }

// MaskID returns the first child, which acts as mask for masked groups.
func (s *Shape) MaskID() (uuid.UUID, bool) {
	if len(s.Children) == 0 {
		return uuid.Nil, false
	}
	return s.Children[0], true
}

// ChildrenIDs returns the children that are drawn as regular content. Bool
// shapes draw none; masked groups skip their mask.
func (s *Shape) ChildrenIDs() []uuid.UUID {
	switch {
	case s.Type == TypeBool:
		return nil
	case s.Type == TypeGroup && s.Masked && len(s.Children) > 0:
		return append([]uuid.UUID(nil), s.Children[1:]...)
	default:
		return append([]uuid.UUID(nil), s.Children...)
	}
}

// IsRecursive reports whether children are drawn through the renderer.
func (s *Shape) IsRecursive() bool { return s.Type != TypeSVGRaw }

// Bounds returns the selrect corners after the transform has been applied
// around the center.
func (s *Shape) Bounds() geom.Bounds {
	return s.Selrect.Corners().Transform(s.Transform.About(s.Center()))
}

// ToPathTransform returns the matrix that brings path and bool geometry back
// into the untransformed selrect space. ok is false for other types and for
// singular transforms.
func (s *Shape) ToPathTransform() (geom.Matrix2D, bool) {
	if s.Type != TypePath && s.Type != TypeBool {
		return geom.Identity(), false
	}
	inv, ok := s.Transform.Invert()
	if !ok {
		return geom.Identity(), false
	}
	return inv.About(s.Center()), true
}
