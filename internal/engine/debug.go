package engine

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

// The overlay draws the canvas shrunk by debugScale and shifted by
// debugOffset pixels so negative tiles stay on screen.
const (
	debugScale  = 0.2
	debugOffset = 100
)

var (
	debugViewColor     = color.RGBA{R: 255, B: 255, A: 255}
	debugGridColor     = color.RGBA{R: 255, B: 127, A: 255}
	debugTileColor     = color.RGBA{R: 127, B: 255, A: 255}
	debugShapeColor    = color.RGBA{G: 255, B: 255, A: 255}
	debugVisibleColor  = color.RGBA{R: 255, G: 255, A: 255}
	debugWatermarkText = color.NRGBA{A: 100}
)

func debugRect(r geom.Rect) image.Rectangle {
	x0 := debugOffset + r.X*debugScale
	y0 := debugOffset + r.Y*debugScale
	return image.Rect(
		int(math.Round(x0)),
		int(math.Round(y0)),
		int(math.Round(x0+r.Width*debugScale)),
		int(math.Round(y0+r.Height*debugScale)),
	)
}

// DebugOverlay draws the debug view on a transparent width x height image.
func (e *Engine) DebugOverlay(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	e.DrawDebug(img)
	return img
}

// DrawDebug draws the viewbox, the visible tile grid labelled x:y, the
// occupied tiles labelled with their shape counts and every shape's
// selection rect. Shapes touching the viewbox are highlighted.
func (e *Engine) DrawDebug(dst draw.Image) {
	face := basicfont.Face7x13
	vb := e.viewbox

	strokeRect(dst, debugRect(vb.Area), debugViewColor)

	e.VisibleTiles().Each(func(t tiles.Tile) {
		r := debugRect(e.tiles.Rect(vb, t))
		strokeRect(dst, r, debugGridColor)
		drawLabel(dst, face, r.Min.X, r.Min.Y-1, t.String(), debugGridColor)

		if n := e.tiles.ShapeCount(t); n > 0 {
			inner := r.Inset(2)
			strokeRect(dst, inner, debugTileColor)
			drawLabel(dst, face, inner.Min.X+2, inner.Min.Y+face.Ascent+2, fmt.Sprintf("%s %d", t, n), debugTileColor)
		}
	})

	for _, s := range e.Shapes() {
		if s.Hidden {
			continue
		}
		c := debugShapeColor
		if overlaps(s.Selrect, vb.Area) {
			c = debugVisibleColor
		}
		strokeRect(dst, debugRect(s.Selrect), c)
	}

	label := "RENDER CORE"
	if e.debug {
		label = "RENDER CORE (DEBUG)"
	}
	b := dst.Bounds()
	w := font.MeasureString(face, label).Ceil()
	drawLabel(dst, face, b.Max.X-25-w, b.Max.Y-25, label, debugWatermarkText)
}

func overlaps(a, b geom.Rect) bool {
	ab, bb := a.Box(), b.Box()
	return ab.LLx <= bb.URx && bb.LLx <= ab.URx && ab.LLy <= bb.URy && bb.LLy <= ab.URy
}

// strokeRect draws a one pixel outline of r.
func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	r = r.Canon()
	if r.Empty() {
		r.Max = r.Min.Add(image.Pt(1, 1))
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, edge := range edges {
		draw.Draw(dst, edge.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

func drawLabel(dst draw.Image, face font.Face, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
