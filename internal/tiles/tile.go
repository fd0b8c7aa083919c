// Package tiles maps canvas space onto a virtual grid of square tiles and
// keeps track of which elements and which cached surfaces belong to each
// tile.
package tiles

import (
	"errors"
	"fmt"
	"image"
	"math"

	"seehuhn.de/go/geom/rect"

	"github.com/inamate/inamate/render-core/internal/geom"
)

// TileSize is the edge length of a tile in device pixels.
const TileSize = 512

// Zoom and tile-count limits. A viewbox may show at most MaxVisibleTiles
// tiles; an element occupying more than MaxElementTiles tiles is indexed
// only around the visible range.
const (
	MinZoom         = 1.0 / 64
	MaxZoom         = 256
	MaxVisibleTiles = 4096
	MaxElementTiles = 1 << 14
)

// ErrInvalidViewbox is returned for viewboxes the grid cannot serve.
var ErrInvalidViewbox = errors.New("invalid viewbox")

// Tile identifies a cell of the grid anchored at the canvas origin.
type Tile struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func (t Tile) String() string { return fmt.Sprintf("%d:%d", t.X, t.Y) }

// Viewbox is the visible canvas area plus the zoom factor.
type Viewbox struct {
	Area geom.Rect
	Zoom float64
}

// Validate checks vb against the grid limits for tiles of base device
// pixels.
func (vb Viewbox) Validate(base float64) error {
	switch {
	case !vb.Area.InRange():
		return fmt.Errorf("%w: area %+v: %w", ErrInvalidViewbox, vb.Area, geom.ErrOutOfRange)
	case vb.Area.Width <= 0 || vb.Area.Height <= 0:
		return fmt.Errorf("%w: size %gx%g must be positive", ErrInvalidViewbox, vb.Area.Width, vb.Area.Height)
	case !(vb.Zoom >= MinZoom && vb.Zoom <= MaxZoom):
		return fmt.Errorf("%w: zoom %g outside [%g, %g]", ErrInvalidViewbox, vb.Zoom, MinZoom, float64(MaxZoom))
	}
	if n := ForRect(vb.Area, SizeFor(base, vb.Zoom)).Count(); n > MaxVisibleTiles {
		return fmt.Errorf("%w: %d visible tiles, limit %d", ErrInvalidViewbox, n, MaxVisibleTiles)
	}
	return nil
}

// Dimensions returns the pixel size of a tile surface.
func Dimensions() image.Point {
	return image.Pt(TileSize, TileSize)
}

// Size returns the canvas-space edge length of a tile at vb's zoom.
func Size(vb Viewbox) float64 {
	return SizeFor(TileSize, vb.Zoom)
}

// SizeFor returns base / zoom. A non-positive zoom counts as 1.
func SizeFor(base, zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return base / zoom
}

// Range is an inclusive block of tiles [SX, EX] x [SY, EY].
type Range struct {
	SX, SY, EX, EY int32
}

// ForRect returns every tile touched by r. The start edges are floored; end
// edges are exclusive so a rect ending exactly on a tile boundary stays in
// the lower tile. Empty rects still occupy the tile holding their origin.
// Inverted rects are normalised first. Indices saturate at the int32
// range, minus one at the top so iteration never wraps; NaN maps to 0.
func ForRect(r geom.Rect, size float64) Range {
	left, right := min(r.Left(), r.Right()), max(r.Left(), r.Right())
	top, bottom := min(r.Top(), r.Bottom()), max(r.Top(), r.Bottom())

	sx := tileIndex(math.Floor(left / size))
	sy := tileIndex(math.Floor(top / size))
	ex := max(sx, tileIndex(math.Ceil(right/size)-1))
	ey := max(sy, tileIndex(math.Ceil(bottom/size)-1))
	return Range{SX: sx, SY: sy, EX: ex, EY: ey}
}

func tileIndex(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= math.MinInt32:
		return math.MinInt32
	case v >= math.MaxInt32-1:
		return math.MaxInt32 - 1
	}
	return int32(v)
}

// ForViewbox returns the tiles covering the visible area.
func ForViewbox(vb Viewbox) Range {
	return ForRect(vb.Area, Size(vb))
}

// Each calls fn for every tile in the range, row by row.
func (r Range) Each(fn func(Tile)) {
	for y := r.SY; y <= r.EY; y++ {
		for x := r.SX; x <= r.EX; x++ {
			fn(Tile{X: x, Y: y})
		}
	}
}

// Tiles returns the range as a slice, row by row.
func (r Range) Tiles() []Tile {
	out := make([]Tile, 0, r.Count())
	r.Each(func(t Tile) { out = append(out, t) })
	return out
}

// Contains reports whether t lies in the range.
func (r Range) Contains(t Tile) bool {
	return t.X >= r.SX && t.X <= r.EX && t.Y >= r.SY && t.Y <= r.EY
}

// Count returns the number of tiles in the range, saturating at
// math.MaxInt.
func (r Range) Count() int {
	if r.EX < r.SX || r.EY < r.SY {
		return 0
	}
	w := int64(r.EX) - int64(r.SX) + 1
	h := int64(r.EY) - int64(r.SY) + 1
	if w > math.MaxInt/h {
		return math.MaxInt
	}
	return int(w * h)
}

// Intersect returns the tiles in both ranges. The result is empty, with
// Count 0, when they do not overlap.
func (r Range) Intersect(o Range) Range {
	return Range{SX: max(r.SX, o.SX), SY: max(r.SY, o.SY), EX: min(r.EX, o.EX), EY: min(r.EY, o.EY)}
}

// Grow extends the range by n tiles on every side, saturating like ForRect.
func (r Range) Grow(n int32) Range {
	grow := func(v int32, d int64) int32 { return tileIndex(float64(int64(v) + d)) }
	return Range{SX: grow(r.SX, -int64(n)), SY: grow(r.SY, -int64(n)), EX: grow(r.EX, int64(n)), EY: grow(r.EY, int64(n))}
}

// Pos returns the canvas position of t's top-left corner.
func Pos(vb Viewbox, t Tile) geom.Point {
	s := Size(vb)
	return geom.Point{X: float64(t.X) * s, Y: float64(t.Y) * s}
}

// TileRect returns the canvas area covered by t.
func TileRect(vb Viewbox, t Tile) geom.Rect {
	p := Pos(vb, t)
	s := Size(vb)
	return geom.Rect{X: p.X, Y: p.Y, Width: s, Height: s}
}

// TileBox is TileRect in lower-left/upper-right form.
func TileBox(vb Viewbox, t Tile) rect.Rect {
	return TileRect(vb, t).Box()
}
