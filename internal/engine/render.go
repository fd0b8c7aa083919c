package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/surface"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

// TileView locates a tile on the canvas and in the viewport.
type TileView struct {
	Tile tiles.Tile
	// Rect is the canvas area covered by the tile.
	Rect geom.Rect
	Zoom float64
	// Offset is the device position of the tile's top-left corner in the
	// viewport.
	Offset image.Point
	// Size is the tile edge in device pixels.
	Size int
}

// Matrix maps canvas coordinates to tile-local device pixels.
func (v TileView) Matrix() geom.Matrix2D {
	return geom.Scale(v.Zoom, v.Zoom).Multiply(geom.Translate(-v.Rect.X, -v.Rect.Y))
}

// Bounds returns the tile's device rectangle in the viewport.
func (v TileView) Bounds() image.Rectangle {
	return image.Rectangle{Min: v.Offset, Max: v.Offset.Add(image.Pt(v.Size, v.Size))}
}

// Drawer is the drawing collaborator. The engine decides which tiles need
// drawing and where cached surfaces go; the Drawer does the painting.
type Drawer interface {
	// DrawTile paints shapes into an empty tile surface.
	DrawTile(dst surface.Surface, view TileView, shapes []*shape.Shape) error
	// DrawDirect paints shapes straight into the viewport, clipped to the
	// tile. It is used when no surface could be pooled for the tile.
	DrawDirect(view TileView, shapes []*shape.Shape) error
	// Present puts a finished tile surface on the viewport.
	Present(src surface.Surface, view TileView) error
}

// TileStatus says how a tile will be produced in the next frame.
type TileStatus string

const (
	TileCached TileStatus = "cached"
	TileDraw   TileStatus = "draw"
	TileEmpty  TileStatus = "empty"
)

type TilePlan struct {
	Tile   tiles.Tile `json:"tile"`
	Rect   [4]float64 `json:"rect"`
	Status TileStatus `json:"status"`
	Shapes []string   `json:"shapes,omitempty"`
}

// FramePlan lists the visible tiles of the next frame, row by row.
type FramePlan struct {
	Zoom     float64     `json:"zoom"`
	TileSize float64     `json:"tileSize"`
	Range    tiles.Range `json:"range"`
	Tiles    []TilePlan  `json:"tiles"`
}

// FrameStats counts what Render did per tile.
type FrameStats struct {
	Cached  int `json:"cached"`
	Drawn   int `json:"drawn"`
	Direct  int `json:"direct"`
	Empty   int `json:"empty"`
	Evicted int `json:"evicted"`
}

func (e *Engine) view(t tiles.Tile) TileView {
	r := e.tiles.Rect(e.viewbox, t)
	zoom := e.viewbox.Zoom
	return TileView{
		Tile: t,
		Rect: r,
		Zoom: zoom,
		Offset: image.Pt(
			int(math.Round((r.X-e.viewbox.Area.X)*zoom)),
			int(math.Round((r.Y-e.viewbox.Area.Y)*zoom)),
		),
		Size: e.tileSize,
	}
}

// Plan describes the next frame without touching the cache.
func (e *Engine) Plan() FramePlan {
	vr := e.VisibleTiles()
	plan := FramePlan{
		Zoom:     e.viewbox.Zoom,
		TileSize: e.tiles.Size(e.viewbox),
		Range:    vr,
		Tiles:    make([]TilePlan, 0, vr.Count()),
	}
	vr.Each(func(t tiles.Tile) {
		r := e.tiles.Rect(e.viewbox, t)
		tp := TilePlan{Tile: t, Rect: [4]float64{r.X, r.Y, r.Width, r.Height}}
		shapes := e.TileShapes(t)
		switch _, cached := e.tiles.CachedSurfaceAt(t); {
		case cached:
			tp.Status = TileCached
		case len(shapes) == 0:
			tp.Status = TileEmpty
		default:
			tp.Status = TileDraw
		}
		for _, s := range shapes {
			tp.Shapes = append(tp.Shapes, s.ID.String())
		}
		plan.Tiles = append(plan.Tiles, tp)
	})
	return plan
}

// Render produces a frame through d. Cached tiles are presented as they
// are; the rest are drawn into pooled surfaces first. When the pool runs out
// the engine evicts surfaces of tiles that are no longer visible and, if
// that is not enough, has d draw the tile directly.
func (e *Engine) Render(d Drawer) (FrameStats, error) {
	var stats FrameStats
	vr := e.VisibleTiles()

	var renderErr error
	vr.Each(func(t tiles.Tile) {
		if renderErr != nil {
			return
		}
		renderErr = e.renderTile(d, vr, t, &stats)
	})
	if renderErr != nil {
		return stats, renderErr
	}
	return stats, nil
}

func (e *Engine) renderTile(d Drawer, visible tiles.Range, t tiles.Tile, stats *FrameStats) error {
	view := e.view(t)

	if slot, ok := e.tiles.CachedSurfaceAt(t); ok {
		stats.Cached++
		return d.Present(slot.Surface(), view)
	}

	shapes := e.TileShapes(t)
	if len(shapes) == 0 {
		stats.Empty++
		return nil
	}

	slot, err := e.tiles.GetOrCreateSurfaceAt(t)
	if errors.Is(err, surface.ErrPoolExhausted) {
		if n := e.tiles.EvictSurfacesOutside(visible); n > 0 {
			stats.Evicted += n
			slot, err = e.tiles.GetOrCreateSurfaceAt(t)
		}
	}
	if errors.Is(err, surface.ErrPoolExhausted) {
		e.log.Warn("surface pool exhausted, drawing tile directly", "tile", t.String(), "shapes", len(shapes))
		stats.Direct++
		if err := d.DrawDirect(view, shapes); err != nil {
			return fmt.Errorf("draw tile %s directly: %w", t, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("allocate surface for tile %s: %w", t, err)
	}

	dst := slot.Surface()
	dst.Clear(color.Transparent)
	if err := d.DrawTile(dst, view, shapes); err != nil {
		e.tiles.InvalidateSurfaceAt(t)
		return fmt.Errorf("draw tile %s: %w", t, err)
	}
	stats.Drawn++
	return d.Present(dst, view)
}

// HitTest returns the topmost visible shape whose oriented bounds contain p.
// Every shape is checked, not only those indexed at p's tile: a rotated
// shape can reach past the tiles of its selrect.
func (e *Engine) HitTest(p geom.Point) (uuid.UUID, bool) {
	for i := len(e.order) - 1; i >= 0; i-- {
		s := e.shapes[e.order[i]]
		if s.Hidden {
			continue
		}
		b := s.Bounds()
		if b.Rect().Contains(p.X, p.Y) && b.ContainsPoint(p) {
			return s.ID, true
		}
	}
	return uuid.Nil, false
}

// PlanJSON serializes Plan for the wasm bridge.
func (e *Engine) PlanJSON() string {
	data, err := json.Marshal(e.Plan())
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ShapesJSON serializes every shape in painter's order.
func (e *Engine) ShapesJSON() string {
	data, err := json.Marshal(e.Document().Shapes)
	if err != nil {
		return "[]"
	}
	return string(data)
}
