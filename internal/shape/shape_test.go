package shape

import (
	"image/color"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/geom"
)

const tol = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= tol }

func TestApplyTransformScale(t *testing.T) {
	s := New(uuid.Nil)
	s.SetSelrect(0, 10, 10, 0)

	s.ApplyTransform(geom.Scale(2, 2))

	if !near(s.Selrect.Width, 20) || !near(s.Selrect.Height, 20) {
		t.Errorf("selrect = %+v, want 20x20", s.Selrect)
	}
}

func TestApplyTransformReproducesBounds(t *testing.T) {
	tests := []struct {
		name string
		m    geom.Matrix2D
	}{
		{"translate", geom.Translate(30, -12)},
		{"rotate", geom.RotateDegrees(30)},
		{"scale about point", geom.Scale(3, 0.5).About(geom.Point{X: 40, Y: 40})},
		{"rotate then move", geom.Translate(5, 7).Multiply(geom.RotateDegrees(-75))},
		{"shear", geom.Matrix2D{1, 0, 0.4, 1, 0, 0}},
		{"mirror", geom.Scale(-1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(uuid.New())
			s.SetSelrect(10, 20, 110, 70)
			s.Transform = geom.RotateDegrees(15)

			want := s.Bounds().Transform(tt.m)
			s.ApplyTransform(tt.m)

			if got := s.Bounds(); !got.ApproxEqual(want, 1e-6) {
				t.Errorf("bounds = %+v, want %+v", got, want)
			}
			if s.Transform[4] != 0 || s.Transform[5] != 0 {
				t.Errorf("transform carries translation: %v", s.Transform)
			}
		})
	}
}

func TestApplyTransformSequence(t *testing.T) {
	s := New(uuid.New())
	s.SetSelrect(0, 0, 40, 20)

	steps := []geom.Matrix2D{
		geom.RotateDegrees(45),
		geom.Translate(100, 0),
		geom.Scale(2, 1),
		geom.RotateDegrees(-45),
	}
	want := s.Bounds()
	for _, m := range steps {
		want = want.Transform(m)
		s.ApplyTransform(m)
	}
	if got := s.Bounds(); !got.ApproxEqual(want, 1e-6) {
		t.Errorf("bounds = %+v, want %+v", got, want)
	}
}

func TestApplyTransformDegenerate(t *testing.T) {
	s := New(uuid.New())
	s.SetSelrect(0, 0, 10, 10)
	s.ApplyTransform(geom.Scale(0, 1))

	if !s.Transform.IsIdentity() {
		t.Errorf("transform = %v, want identity", s.Transform)
	}
	if !near(s.Selrect.Width, 0) || !near(s.Selrect.Height, 10) {
		t.Errorf("selrect = %+v", s.Selrect)
	}
	if c := s.Center(); !near(c.X, 0) || !near(c.Y, 5) {
		t.Errorf("center = %v, want (0,5)", c)
	}
}

func TestBoundsUsesCenterPivot(t *testing.T) {
	s := New(uuid.New())
	s.SetSelrect(0, 0, 10, 10)
	s.Transform = geom.RotateDegrees(90)

	b := s.Bounds()
	// A quarter turn about (5,5) moves the NW corner to the NE position.
	if !near(b.NW.X, 10) || !near(b.NW.Y, 0) {
		t.Errorf("NW = %v, want (10,0)", b.NW)
	}
	if c := b.Center(); !near(c.X, 5) || !near(c.Y, 5) {
		t.Errorf("center = %v", c)
	}
}

func TestToPathTransform(t *testing.T) {
	s := New(uuid.New())
	s.SetSelrect(0, 0, 30, 10)
	s.Transform = geom.RotateDegrees(20).Multiply(geom.Scale(1.5, 1))

	if _, ok := s.ToPathTransform(); ok {
		t.Error("rect shapes have no path transform")
	}

	s.Type = TypePath
	m, ok := s.ToPathTransform()
	if !ok {
		t.Fatal("ToPathTransform failed")
	}
	if got := s.Bounds().Transform(m); !got.ApproxEqual(s.Selrect.Corners(), 1e-9) {
		t.Errorf("path transform does not undo the shape transform: %+v", got)
	}

	s.Transform = geom.Scale(0, 0)
	if _, ok := s.ToPathTransform(); ok {
		t.Error("singular transform should fail")
	}
}

func TestTypeAndConstraintDecoding(t *testing.T) {
	if TypeFromByte(5) != TypeText || TypeFromByte(200) != TypeRect {
		t.Error("TypeFromByte mismatch")
	}
	if ParseType("svg-raw") != TypeSVGRaw || ParseType("blob") != TypeRect {
		t.Error("ParseType mismatch")
	}
	if ConstraintHFromByte(5) != nil || ConstraintVFromByte(9) != nil {
		t.Error("unknown constraint should decode to nil")
	}

	s := New(uuid.New())
	if s.ConstraintHOr(ConstraintHScale) != ConstraintHScale {
		t.Error("default horizontal constraint not applied")
	}
	s.ConstraintV = ConstraintVFromByte(2)
	if s.ConstraintVOr(ConstraintTop) != ConstraintTopBottom {
		t.Error("explicit vertical constraint ignored")
	}
}

func TestChildrenIDs(t *testing.T) {
	mask, a, b := uuid.New(), uuid.New(), uuid.New()
	s := New(uuid.New())
	s.Type = TypeGroup
	s.Children = []uuid.UUID{mask, a, b}

	if got := s.ChildrenIDs(); len(got) != 3 {
		t.Errorf("unmasked group children = %v", got)
	}
	s.Masked = true
	if got := s.ChildrenIDs(); len(got) != 2 || got[0] != a {
		t.Errorf("masked group children = %v", got)
	}
	if id, ok := s.MaskID(); !ok || id != mask {
		t.Errorf("MaskID = %v, %v", id, ok)
	}
	s.Type = TypeBool
	if got := s.ChildrenIDs(); got != nil {
		t.Errorf("bool children = %v", got)
	}
}

func TestFillErrors(t *testing.T) {
	s := New(uuid.New())
	stops := []Stop{{Color: color.NRGBA{R: 255, A: 255}, Offset: 0}}

	if err := s.AddFillGradientStops(stops); err != ErrNoFill {
		t.Errorf("err = %v, want ErrNoFill", err)
	}
	s.AddFill(SolidFill(color.NRGBA{A: 255}))
	if err := s.AddFillGradientStops(stops); err != ErrNotGradient {
		t.Errorf("err = %v, want ErrNotGradient", err)
	}
	s.AddFill(Fill{Kind: FillLinearGradient, Gradient: &Gradient{Opacity: 1}})
	if err := s.AddFillGradientStops(stops); err != nil {
		t.Fatalf("AddFillGradientStops: %v", err)
	}
	if n := len(s.Fills[1].Gradient.Stops); n != 1 {
		t.Errorf("stops = %d", n)
	}

	if err := s.SetStrokeFill(SolidFill(color.NRGBA{})); err != ErrNoStroke {
		t.Errorf("err = %v, want ErrNoStroke", err)
	}
	if err := s.AddStrokeGradientStops(stops); err != ErrNoStroke {
		t.Errorf("err = %v, want ErrNoStroke", err)
	}
	s.AddStroke(Stroke{Width: 2, Fill: SolidFill(color.NRGBA{A: 255})})
	if err := s.AddStrokeGradientStops(stops); err != ErrNotGradient {
		t.Errorf("err = %v, want ErrNotGradient", err)
	}
	if err := s.SetStrokeFill(Fill{Kind: FillRadialGradient, Gradient: &Gradient{}}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddStrokeGradientStops(stops); err != nil {
		t.Errorf("AddStrokeGradientStops: %v", err)
	}
}
