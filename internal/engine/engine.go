package engine

import (
	"encoding/json"
	"fmt"
	"image/color"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/surface"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

// Options configures a render session.
type Options struct {
	// TileSize is the tile edge in device pixels; 0 means tiles.TileSize.
	TileSize int
	// PoolCapacity is the number of pooled tile surfaces; 0 means
	// surface.DefaultCapacity.
	PoolCapacity int
	PoolPolicy   surface.Policy
	// Factory creates tile surfaces; nil means CPU image surfaces.
	Factory surface.Factory
	Logger  *slog.Logger
}

// Engine is a single render session. It owns the shapes of one document,
// the viewbox, the tile index and the pooled tile surfaces. It is not safe
// for concurrent use; every call must come from the goroutine that owns it.
type Engine struct {
	shapes map[uuid.UUID]*shape.Shape
	// Painter's order, back to front.
	order []uuid.UUID

	viewbox    tiles.Viewbox
	background color.NRGBA
	docID      string

	tileSize int
	pool     *surface.Pool
	tiles    *tiles.Tiles

	debug bool
	log   *slog.Logger
}

// NewEngine creates an empty session with a 1280x720 viewbox at zoom 1.
func NewEngine(opts Options) (*Engine, error) {
	if opts.TileSize <= 0 {
		opts.TileSize = tiles.TileSize
	}
	if opts.PoolCapacity <= 0 {
		opts.PoolCapacity = surface.DefaultCapacity
	}
	if opts.Factory == nil {
		opts.Factory = surface.ImageFactory{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	pool, err := surface.NewPool(opts.Factory, opts.TileSize, opts.TileSize,
		surface.WithCapacity(opts.PoolCapacity),
		surface.WithPolicy(opts.PoolPolicy),
	)
	if err != nil {
		return nil, fmt.Errorf("create surface pool: %w", err)
	}

	e := &Engine{
		shapes:   make(map[uuid.UUID]*shape.Shape),
		tileSize: opts.TileSize,
		pool:     pool,
		tiles:    tiles.New(pool, float64(opts.TileSize)),
		log:      opts.Logger,
	}
	e.viewbox = tiles.Viewbox{Area: geom.Rect{Width: 1280, Height: 720}, Zoom: 1}
	return e, nil
}

// --- Commands ---

// LoadDocument replaces every shape with the document's and adopts its
// viewbox. A document without a zoom keeps the current viewbox.
func (e *Engine) LoadDocument(doc *document.Document) error {
	shapes, err := BuildShapes(doc)
	if err != nil {
		return fmt.Errorf("load document %s: %w", doc.ID, err)
	}
	vb := ViewboxFrom(doc.Viewbox)
	if vb.Zoom == 0 {
		vb = e.viewbox
	} else if err := vb.Validate(float64(e.tileSize)); err != nil {
		return fmt.Errorf("load document %s: %w", doc.ID, err)
	}

	bg := color.NRGBA{}
	if doc.Background != "" {
		if bg, err = document.ParseColor(doc.Background); err != nil {
			return fmt.Errorf("load document %s: background: %w", doc.ID, err)
		}
	}

	e.Reset()
	e.docID = doc.ID
	e.background = bg
	e.viewbox = vb
	for _, s := range shapes {
		e.insert(s)
	}
	e.reindex()
	return nil
}

// LoadDocumentJSON decodes and loads a document.
func (e *Engine) LoadDocumentJSON(data []byte) error {
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return e.LoadDocument(&doc)
}

// Reset drops every shape and cached tile. The viewbox is kept.
func (e *Engine) Reset() {
	clear(e.shapes)
	e.order = e.order[:0]
	e.tiles.InvalidateTiles()
	e.docID = ""
}

// SetViewbox moves the visible area. A zoom change resizes every tile, so
// memberships are recomputed; a pan only moves the memberships of shapes
// too large to index in full.
func (e *Engine) SetViewbox(vb tiles.Viewbox) error {
	if err := vb.Validate(float64(e.tileSize)); err != nil {
		return fmt.Errorf("set viewbox: %w", err)
	}
	zoomChanged := vb.Zoom != e.viewbox.Zoom
	panned := e.tiles.Visible(vb) != e.VisibleTiles()
	e.viewbox = vb
	switch {
	case zoomChanged:
		e.reindex()
	case panned:
		// Tiles a clipped shape enters have never been drawn without it,
		// so no surface needs dropping.
		for _, id := range e.tiles.Clipped() {
			e.tiles.UpdateTileFor(e.viewbox, e.shapes[id])
		}
	}
	return nil
}

// Viewbox returns the current viewbox.
func (e *Engine) Viewbox() tiles.Viewbox { return e.viewbox }

// UpsertShape adds s or replaces the shape with the same id. Tiles the shape
// left or entered lose their cached surfaces.
func (e *Engine) UpsertShape(s *shape.Shape) {
	if _, ok := e.shapes[s.ID]; ok {
		e.evict(s.ID)
		e.shapes[s.ID] = s
	} else {
		e.insert(s)
	}
	e.index(s)
}

// RemoveShape drops the shape with the given id.
func (e *Engine) RemoveShape(id uuid.UUID) error {
	if _, ok := e.shapes[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, shape.ErrUnknownShape)
	}
	e.evict(id)
	delete(e.shapes, id)
	if i := slices.Index(e.order, id); i >= 0 {
		e.order = slices.Delete(e.order, i, i+1)
	}
	return nil
}

// ApplyTransform folds m into every listed shape and returns one entry per
// shape it moved, in the order given. m is rounded to float32 first, the
// precision entries are stored at, so replaying the entries reproduces the
// shapes exactly. Matrices that overflow float32 are rejected. Unknown ids are skipped, as are shapes m would push out
// of the coordinate range.
func (e *Engine) ApplyTransform(ids []uuid.UUID, m geom.Matrix2D) []shape.TransformEntry {
	m = m.Float32()
	if !m.IsFinite() {
		e.log.Warn("non-finite transform skipped", "matrix", m)
		return nil
	}

	entries := make([]shape.TransformEntry, 0, len(ids))
	for _, id := range ids {
		if e.transform(id, m) {
			entries = append(entries, shape.TransformEntry{ID: id, Transform: m})
		}
	}
	return entries
}

// ReplayTransforms applies entries in order, as ApplyTransform produced
// them. Entries of unknown shapes are skipped; the number applied is
// returned.
func (e *Engine) ReplayTransforms(entries []shape.TransformEntry) int {
	n := 0
	for _, en := range entries {
		m := en.Transform.Float32()
		if !m.IsFinite() {
			continue
		}
		if e.transform(en.ID, m) {
			n++
		}
	}
	return n
}

func (e *Engine) transform(id uuid.UUID, m geom.Matrix2D) bool {
	s, ok := e.shapes[id]
	if !ok {
		e.log.Warn("transform of unknown shape skipped", "shape", id)
		return false
	}
	selrect, t := s.Selrect, s.Transform
	s.ApplyTransform(m)
	if !s.Selrect.InRange() || !s.Transform.IsFinite() {
		s.Selrect, s.Transform = selrect, t
		e.log.Warn("transform out of range skipped", "shape", id)
		return false
	}
	e.evict(id)
	e.index(s)
	return true
}

// InvalidateTiles drops every cached surface and recomputes memberships.
func (e *Engine) InvalidateTiles() {
	e.tiles.InvalidateTiles()
	e.reindex()
}

// SetDebug toggles the debug overlay.
func (e *Engine) SetDebug(on bool) { e.debug = on }

func (e *Engine) insert(s *shape.Shape) {
	e.shapes[s.ID] = s
	e.order = append(e.order, s.ID)
}

// evict removes id from the index and drops the surfaces of the tiles it
// occupied.
func (e *Engine) evict(id uuid.UUID) {
	for _, t := range e.tiles.RemoveShape(id) {
		e.tiles.InvalidateSurfaceAt(t)
	}
}

// index registers s at its tiles and drops their surfaces. Hidden shapes
// occupy no tiles.
func (e *Engine) index(s *shape.Shape) {
	if s.Hidden {
		return
	}
	r := e.tiles.UpdateTileFor(e.viewbox, s)
	r.Each(func(t tiles.Tile) { e.tiles.InvalidateSurfaceAt(t) })
}

func (e *Engine) reindex() {
	e.tiles.SetZoom(e.viewbox.Zoom)
	e.tiles.InvalidateShapes()
	for _, id := range e.order {
		e.index(e.shapes[id])
	}
}

// --- Queries ---

// Shape returns the shape with the given id.
func (e *Engine) Shape(id uuid.UUID) (*shape.Shape, bool) {
	s, ok := e.shapes[id]
	return s, ok
}

// Len returns the number of shapes.
func (e *Engine) Len() int { return len(e.shapes) }

// DocumentID returns the id of the loaded document.
func (e *Engine) DocumentID() string { return e.docID }

// Shapes returns the shapes in painter's order.
func (e *Engine) Shapes() []*shape.Shape {
	out := make([]*shape.Shape, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.shapes[id])
	}
	return out
}

// Document snapshots the session as a document.
func (e *Engine) Document() *document.Document {
	doc := &document.Document{
		ID:         e.docID,
		Background: hexColor(e.background),
		Viewbox: document.Viewbox{
			X: e.viewbox.Area.X, Y: e.viewbox.Area.Y,
			Width: e.viewbox.Area.Width, Height: e.viewbox.Area.Height,
			Zoom: e.viewbox.Zoom,
		},
		Shapes: make([]document.ShapeData, 0, len(e.order)),
	}
	for _, s := range e.Shapes() {
		doc.Shapes = append(doc.Shapes, ShapeData(s))
	}
	return doc
}

// TileShapes returns the shapes registered at tile, in painter's order.
func (e *Engine) TileShapes(t tiles.Tile) []*shape.Shape {
	ids, ok := e.tiles.TileAt(t)
	if !ok {
		return nil
	}
	members := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}

	out := make([]*shape.Shape, 0, len(ids))
	for _, id := range e.order {
		if _, ok := members[id]; ok {
			out = append(out, e.shapes[id])
		}
	}
	return out
}

// TileShapeCount returns the number of shapes registered at tile.
func (e *Engine) TileShapeCount(t tiles.Tile) int { return e.tiles.ShapeCount(t) }

// TilesOf returns the tiles a shape occupies.
func (e *Engine) TilesOf(id uuid.UUID) []tiles.Tile {
	ts, _ := e.tiles.TilesOf(id)
	return ts
}

// TileRect returns the canvas area tile covers at the current zoom.
func (e *Engine) TileRect(t tiles.Tile) geom.Rect { return e.tiles.Rect(e.viewbox, t) }

// TileCached reports whether tile has a cached surface.
func (e *Engine) TileCached(t tiles.Tile) bool {
	_, ok := e.tiles.CachedSurfaceAt(t)
	return ok
}

// VisibleTiles returns the tiles covering the viewbox.
func (e *Engine) VisibleTiles() tiles.Range { return e.tiles.Visible(e.viewbox) }

// ShapeBounds returns the oriented quad of a shape.
func (e *Engine) ShapeBounds(id uuid.UUID) (geom.Bounds, error) {
	s, ok := e.shapes[id]
	if !ok {
		return geom.Bounds{}, fmt.Errorf("bounds of %s: %w", id, shape.ErrUnknownShape)
	}
	return s.Bounds(), nil
}

// EdgeDistances are the signed distances from a point to the four edges of
// a shape. Positive values are inside the edge.
type EdgeDistances struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Inside reports whether the point is between both pairs of opposite
// edges.
func (d EdgeDistances) Inside() bool {
	return d.Left*d.Right >= 0 && d.Top*d.Bottom >= 0
}

// Distances measures p against the shape's oriented bounds.
func (e *Engine) Distances(id uuid.UUID, p geom.Point) (EdgeDistances, error) {
	b, err := e.ShapeBounds(id)
	if err != nil {
		return EdgeDistances{}, err
	}
	return EdgeDistances{Left: b.Left(p), Right: b.Right(p), Top: b.Top(p), Bottom: b.Bottom(p)}, nil
}

// PoolStats reports pool occupancy.
func (e *Engine) PoolStats() (capacity, inUse int) { return e.pool.Len(), e.pool.InUse() }

// CachedTiles returns the number of tiles with a cached surface.
func (e *Engine) CachedTiles() int { return e.tiles.CachedLen() }
