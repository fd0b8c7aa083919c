package tiles

import (
	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/surface"
)

// Element is what the coordinator needs to know about a drawable.
type Element interface {
	ElementID() uuid.UUID
	SelectionRect() geom.Rect
}

// Tiles ties the element index and the surface cache to a tile size. It is
// owned by a single render loop.
type Tiles struct {
	surfaces *SurfaceCache
	shapes   *Index

	base float64
	// zoom the current memberships were computed at; 0 before the first
	// update.
	zoom float64
	// elements indexed only around the viewbox they were last updated at.
	clipped map[uuid.UUID]struct{}
}

// clipMargin is how many tiles around the visible range a clipped element
// is indexed in.
const clipMargin = 4

// New returns a coordinator with an empty index and cache. A non-positive
// base falls back to TileSize.
func New(pool *surface.Pool, base float64) *Tiles {
	if base <= 0 {
		base = TileSize
	}
	return &Tiles{
		surfaces: NewSurfaceCache(pool),
		shapes:   NewIndex(),
		base:     base,
		clipped:  make(map[uuid.UUID]struct{}),
	}
}

// Size returns the canvas-space tile edge at vb's zoom.
func (t *Tiles) Size(vb Viewbox) float64 {
	return SizeFor(t.base, vb.Zoom)
}

// Visible returns the tiles covering vb.
func (t *Tiles) Visible(vb Viewbox) Range {
	return ForRect(vb.Area, t.Size(vb))
}

// Rect returns the canvas area covered by tile at vb's zoom.
func (t *Tiles) Rect(vb Viewbox, tile Tile) geom.Rect {
	s := t.Size(vb)
	return geom.Rect{X: float64(tile.X) * s, Y: float64(tile.Y) * s, Width: s, Height: s}
}

// SetZoom records the zoom memberships are valid for. A change of zoom
// resizes every tile, so both the index and the cache are dropped. It
// reports whether anything was invalidated.
func (t *Tiles) SetZoom(zoom float64) bool {
	if zoom == t.zoom {
		return false
	}
	stale := t.zoom != 0
	t.zoom = zoom
	if stale {
		t.InvalidateTiles()
	}
	return stale
}

// UpdateTileFor replaces e's memberships with the tiles its selection rect
// touches at vb's zoom. An element covering more than MaxElementTiles tiles
// is only registered in the visible range grown by a small margin, and must
// be updated again when the viewbox moves; see Clipped.
func (t *Tiles) UpdateTileFor(vb Viewbox, e Element) Range {
	t.SetZoom(vb.Zoom)

	id := e.ElementID()
	t.shapes.RemoveShape(id)
	delete(t.clipped, id)

	r := ForRect(e.SelectionRect(), t.Size(vb))
	if r.Count() > MaxElementTiles {
		r = r.Intersect(t.Visible(vb).Grow(clipMargin))
		t.clipped[id] = struct{}{}
	}
	r.Each(func(tile Tile) {
		t.shapes.AddShapeAt(tile, id)
	})
	return r
}

// RemoveShape drops id from the index and returns the tiles it occupied.
func (t *Tiles) RemoveShape(id uuid.UUID) []Tile {
	tiles, _ := t.shapes.TilesOf(id)
	t.shapes.RemoveShape(id)
	delete(t.clipped, id)
	return tiles
}

// Clipped returns the elements whose memberships were cut to the viewbox.
func (t *Tiles) Clipped() []uuid.UUID {
	if len(t.clipped) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(t.clipped))
	for id := range t.clipped {
		ids = append(ids, id)
	}
	return ids
}

// IsClipped reports whether id's memberships were cut to the viewbox.
func (t *Tiles) IsClipped(id uuid.UUID) bool {
	_, ok := t.clipped[id]
	return ok
}

// InvalidateSurfaces drops every cached surface.
func (t *Tiles) InvalidateSurfaces() { t.surfaces.Clear() }

// InvalidateShapes drops every membership.
func (t *Tiles) InvalidateShapes() {
	t.shapes.Clear()
	clear(t.clipped)
}

// InvalidateTiles drops both surfaces and memberships.
func (t *Tiles) InvalidateTiles() {
	t.surfaces.Clear()
	t.InvalidateShapes()
}

// InvalidateSurfaceAt drops the cached surface of a single tile.
func (t *Tiles) InvalidateSurfaceAt(tile Tile) bool {
	return t.surfaces.Remove(tile)
}

// GetOrCreateSurfaceAt draws a new pooled surface for tile.
func (t *Tiles) GetOrCreateSurfaceAt(tile Tile) (*surface.Slot, error) {
	return t.surfaces.GetOrCreate(tile)
}

// CachedSurfaceAt returns the surface already cached for tile.
func (t *Tiles) CachedSurfaceAt(tile Tile) (*surface.Slot, bool) {
	return t.surfaces.Get(tile)
}

// ShapeCount returns the number of elements in tile; empty tiles give 0.
func (t *Tiles) ShapeCount(tile Tile) int {
	return t.shapes.Count(tile)
}

// HasTileAt reports whether tile has any elements.
func (t *Tiles) HasTileAt(tile Tile) bool {
	return t.shapes.HasShapesAt(tile)
}

// TileAt returns the elements registered in tile.
func (t *Tiles) TileAt(tile Tile) ([]uuid.UUID, bool) {
	return t.shapes.ShapesAt(tile)
}

// TilesOf returns the tiles id occupies.
func (t *Tiles) TilesOf(id uuid.UUID) ([]Tile, bool) {
	return t.shapes.TilesOf(id)
}

// CachedLen returns the number of tiles with a cached surface.
func (t *Tiles) CachedLen() int { return t.surfaces.Len() }

// EvictSurfacesOutside drops cached surfaces of tiles outside r, handing
// their slots back to the pool.
func (t *Tiles) EvictSurfacesOutside(r Range) int {
	return t.surfaces.Retain(r.Contains)
}
