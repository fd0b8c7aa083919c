// Package surface provides reusable render targets for cached tiles.
//
// The render core never rasterises into surfaces itself. It hands them to a
// drawing collaborator and composites them back, so a Surface only exposes
// what that exchange needs.
package surface

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Surface is an opaque render target.
type Surface interface {
	Width() int
	Height() int
	// Clear fills the whole surface with c.
	Clear(c color.Color)
	// Image exposes the backing pixels to drawing collaborators.
	Image() draw.Image
}

// Factory creates surfaces with the same configuration as a template
// target. The pool calls it once per slot at construction and never again.
type Factory interface {
	NewSurface(width, height int) (Surface, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(width, height int) (Surface, error)

func (f FactoryFunc) NewSurface(width, height int) (Surface, error) {
	return f(width, height)
}

// ImageSurface is a CPU surface backed by an *image.RGBA.
type ImageSurface struct {
	img *image.RGBA
}

// NewImageSurface creates a transparent surface. Non-positive dimensions are
// clamped to 1.
func NewImageSurface(width, height int) *ImageSurface {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *ImageSurface) Width() int        { return s.img.Bounds().Dx() }
func (s *ImageSurface) Height() int       { return s.img.Bounds().Dy() }
func (s *ImageSurface) Image() draw.Image { return s.img }

func (s *ImageSurface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// ImageFactory creates ImageSurfaces.
type ImageFactory struct{}

func (ImageFactory) NewSurface(width, height int) (Surface, error) {
	return NewImageSurface(width, height), nil
}

// Composite draws src over dst with its top-left corner at at. Cached tile
// surfaces are put back on the frame through this.
func Composite(dst draw.Image, src Surface, at image.Point) {
	img := src.Image()
	b := img.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(b.Size())}
	draw.Draw(dst, r, img, b.Min, draw.Over)
}

// CompositeScaled draws src into the rectangle r of dst, resampling when the
// sizes differ.
func CompositeScaled(dst draw.Image, r image.Rectangle, src Surface) {
	img := src.Image()
	draw.ApproxBiLinear.Scale(dst, r, img, img.Bounds(), draw.Over, nil)
}
