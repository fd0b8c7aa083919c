package engine

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/surface"
)

// PreviewDrawer paints each shape's oriented quad in its primary color onto
// an RGBA viewport. It is a flat preview used by the HTTP API and tests; it
// does not rasterise paths.
type PreviewDrawer struct {
	Canvas *image.RGBA
}

// NewPreviewDrawer returns a drawer over a width x height canvas filled with
// bg.
func NewPreviewDrawer(width, height int, bg color.Color) *PreviewDrawer {
	img := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &PreviewDrawer{Canvas: img}
}

func (p *PreviewDrawer) DrawTile(dst surface.Surface, view TileView, shapes []*shape.Shape) error {
	paintShapes(dst.Image(), dst.Image().Bounds(), view.Matrix(), shapes)
	return nil
}

func (p *PreviewDrawer) DrawDirect(view TileView, shapes []*shape.Shape) error {
	m := view.Matrix().PostTranslate(float64(view.Offset.X), float64(view.Offset.Y))
	paintShapes(p.Canvas, view.Bounds(), m, shapes)
	return nil
}

func (p *PreviewDrawer) Present(src surface.Surface, view TileView) error {
	surface.Composite(p.Canvas, src, view.Offset)
	return nil
}

// paintShapes fills every shape's quad, mapped by m, within clip.
func paintShapes(dst draw.Image, clip image.Rectangle, m geom.Matrix2D, shapes []*shape.Shape) {
	clip = clip.Intersect(dst.Bounds())
	for _, s := range shapes {
		if s.Hidden || s.Opacity <= 0 {
			continue
		}
		c, ok := primaryColor(s.Fills)
		if !ok {
			continue
		}
		fillQuad(dst, clip, s.Bounds().Transform(m), c, s.Opacity)
	}
}

// fillQuad covers the pixels whose centers lie inside q.
func fillQuad(dst draw.Image, clip image.Rectangle, q geom.Bounds, c color.NRGBA, opacity float64) {
	if q.Width() < geom.Epsilon || q.Height() < geom.Epsilon {
		return
	}
	xs := []float64{q.NW.X, q.NE.X, q.SE.X, q.SW.X}
	ys := []float64{q.NW.Y, q.NE.Y, q.SE.Y, q.SW.Y}
	area := image.Rect(
		int(math.Floor(min(xs[0], xs[1], xs[2], xs[3]))),
		int(math.Floor(min(ys[0], ys[1], ys[2], ys[3]))),
		int(math.Ceil(max(xs[0], xs[1], xs[2], xs[3]))),
		int(math.Ceil(max(ys[0], ys[1], ys[2], ys[3]))),
	).Intersect(clip)
	if area.Empty() {
		return
	}

	alpha := uint8(math.Round(min(opacity, 1) * 255))
	mask := image.NewAlpha(area)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			p := geom.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			if q.ContainsPoint(p) {
				mask.SetAlpha(x, y, color.Alpha{A: alpha})
			}
		}
	}
	draw.DrawMask(dst, area, image.NewUniform(c), image.Point{}, mask, area.Min, draw.Over)
}

// RenderPreview renders the viewport with a PreviewDrawer. With debug on,
// the debug view is drawn on top.
func (e *Engine) RenderPreview() (*image.RGBA, FrameStats, error) {
	vb := e.viewbox
	w := int(math.Ceil(vb.Area.Width * vb.Zoom))
	h := int(math.Ceil(vb.Area.Height * vb.Zoom))

	d := NewPreviewDrawer(w, h, e.background)
	stats, err := e.Render(d)
	if err != nil {
		return nil, stats, err
	}
	if e.debug {
		e.DrawDebug(d.Canvas)
	}
	return d.Canvas, stats, nil
}
