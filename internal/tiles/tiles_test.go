package tiles

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/surface"
)

type testElement struct {
	id  uuid.UUID
	sel geom.Rect
}

func (e testElement) ElementID() uuid.UUID     { return e.id }
func (e testElement) SelectionRect() geom.Rect { return e.sel }

func newTestTiles(t *testing.T, opts ...surface.Option) (*Tiles, *surface.Pool) {
	t.Helper()
	pool, err := surface.NewPool(surface.ImageFactory{}, 4, 4, opts...)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return New(pool, TileSize), pool
}

func tileSet(ts []Tile) map[Tile]bool {
	m := make(map[Tile]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

func TestUpdateTileForScenario(t *testing.T) {
	tl, _ := newTestTiles(t)

	small := testElement{id: uuid.New(), sel: geom.Rect{X: 100, Y: 100, Width: 200, Height: 200}}
	big := testElement{id: uuid.New(), sel: geom.Rect{X: 0, Y: 0, Width: 600, Height: 600}}

	vb := Viewbox{Zoom: 1}
	tl.UpdateTileFor(vb, small)
	tl.UpdateTileFor(vb, big)

	if got, _ := tl.TilesOf(small.id); len(got) != 1 || got[0] != (Tile{0, 0}) {
		t.Errorf("small at zoom 1: %v", got)
	}
	got, _ := tl.TilesOf(big.id)
	if len(got) != 4 || !tileSet(got)[Tile{1, 1}] {
		t.Errorf("big at zoom 1: %v", got)
	}
	if tl.ShapeCount(Tile{0, 0}) != 2 {
		t.Errorf("ShapeCount(0:0) = %d", tl.ShapeCount(Tile{0, 0}))
	}

	// Zooming in shrinks tiles; previous memberships are dropped, not
	// extended.
	vb.Zoom = 2
	r := tl.UpdateTileFor(vb, big)
	if r != (Range{0, 0, 2, 2}) {
		t.Errorf("big range at zoom 2 = %+v", r)
	}
	if _, ok := tl.TilesOf(small.id); ok {
		t.Error("small kept stale memberships across a zoom change")
	}
	got, _ = tl.TilesOf(big.id)
	if len(got) != 9 {
		t.Errorf("big at zoom 2 occupies %d tiles, want 9", len(got))
	}
}

func TestUpdateTileForMovesElement(t *testing.T) {
	tl, _ := newTestTiles(t)
	vb := Viewbox{Zoom: 1}
	e := testElement{id: uuid.New(), sel: geom.Rect{X: 0, Y: 0, Width: 10, Height: 10}}
	tl.UpdateTileFor(vb, e)

	e.sel.X = 2000
	tl.UpdateTileFor(vb, e)

	if tl.HasTileAt(Tile{0, 0}) {
		t.Error("old tile still holds the element")
	}
	if ids, ok := tl.TileAt(Tile{3, 0}); !ok || ids[0] != e.id {
		t.Errorf("TileAt(3:0) = %v, %v", ids, ok)
	}

	removed := tl.RemoveShape(e.id)
	if len(removed) != 1 || removed[0] != (Tile{3, 0}) {
		t.Errorf("RemoveShape returned %v", removed)
	}
}

func TestSurfaceCacheLifecycle(t *testing.T) {
	tl, pool := newTestTiles(t, surface.WithCapacity(2), surface.WithPolicy(surface.PolicySkipInUse))

	s1, err := tl.GetOrCreateSurfaceAt(Tile{0, 0})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := tl.GetOrCreateSurfaceAt(Tile{1, 0}); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := tl.GetOrCreateSurfaceAt(Tile{2, 0}); !errors.Is(err, surface.ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}

	if got, ok := tl.CachedSurfaceAt(Tile{0, 0}); !ok || got != s1 {
		t.Error("cached surface mismatch")
	}

	if !tl.InvalidateSurfaceAt(Tile{0, 0}) {
		t.Error("InvalidateSurfaceAt = false")
	}
	if tl.InvalidateSurfaceAt(Tile{0, 0}) {
		t.Error("second InvalidateSurfaceAt = true")
	}
	if pool.InUse() != 1 {
		t.Errorf("InUse = %d, want 1", pool.InUse())
	}

	tl.InvalidateSurfaces()
	if tl.CachedLen() != 0 || pool.InUse() != 0 {
		t.Errorf("after invalidation: cached %d, in use %d", tl.CachedLen(), pool.InUse())
	}
}

func TestSurfaceCacheSetAndOverwrite(t *testing.T) {
	pool, err := surface.NewPool(surface.ImageFactory{}, 4, 4, surface.WithCapacity(3), surface.WithPolicy(surface.PolicySkipInUse))
	if err != nil {
		t.Fatal(err)
	}
	c := NewSurfaceCache(pool)

	first, _ := c.GetOrCreate(Tile{0, 0})
	second, _ := c.GetOrCreate(Tile{0, 0})
	if first == second {
		t.Fatal("GetOrCreate should draw a new surface each call")
	}
	if first.InUse() {
		t.Error("overwritten surface was not released")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}

	ext, _ := pool.Allocate()
	c.Set(Tile{5, 5}, ext)
	if !c.Has(Tile{5, 5}) {
		t.Error("Set entry missing")
	}
	if c.Remove(Tile{9, 9}) {
		t.Error("Remove of absent tile = true")
	}
	c.Clear()
	if c.Len() != 0 || pool.InUse() != 0 {
		t.Errorf("Clear left %d entries, %d in use", c.Len(), pool.InUse())
	}
}

func TestSetZoom(t *testing.T) {
	tl, _ := newTestTiles(t)
	if tl.SetZoom(1) {
		t.Error("first SetZoom should not invalidate")
	}
	tl.UpdateTileFor(Viewbox{Zoom: 1}, testElement{id: uuid.New()})
	if tl.SetZoom(1) {
		t.Error("same zoom should not invalidate")
	}
	if !tl.SetZoom(1.5) {
		t.Error("zoom change should invalidate")
	}
	if tl.HasTileAt(Tile{0, 0}) {
		t.Error("memberships survived zoom change")
	}
}

func TestEvictSurfacesOutside(t *testing.T) {
	tl, pool := newTestTiles(t, surface.WithCapacity(4), surface.WithPolicy(surface.PolicySkipInUse))
	for _, tile := range []Tile{{0, 0}, {1, 0}, {5, 5}, {-1, 0}} {
		if _, err := tl.GetOrCreateSurfaceAt(tile); err != nil {
			t.Fatal(err)
		}
	}

	if n := tl.EvictSurfacesOutside(Range{0, 0, 1, 1}); n != 2 {
		t.Errorf("evicted %d, want 2", n)
	}
	if pool.InUse() != 2 || tl.CachedLen() != 2 {
		t.Errorf("in use %d, cached %d", pool.InUse(), tl.CachedLen())
	}
	if _, ok := tl.CachedSurfaceAt(Tile{5, 5}); ok {
		t.Error("tile outside the range kept its surface")
	}
}

func TestRoundRobinReuseDropsStaleEntry(t *testing.T) {
	tl, _ := newTestTiles(t, surface.WithCapacity(2))

	a, _ := tl.GetOrCreateSurfaceAt(Tile{0, 0})
	tl.GetOrCreateSurfaceAt(Tile{1, 0})
	c, err := tl.GetOrCreateSurfaceAt(Tile{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if c != a {
		t.Fatal("round robin should hand slot 0 out again")
	}
	if _, ok := tl.CachedSurfaceAt(Tile{0, 0}); ok {
		t.Error("tile 0:0 still points at a slot now owned by 2:0")
	}
	if tl.CachedLen() != 2 {
		t.Errorf("CachedLen = %d, want 2", tl.CachedLen())
	}
}

func TestUpdateTileForClipsHugeElement(t *testing.T) {
	tl, _ := newTestTiles(t)
	vb := Viewbox{Area: geom.Rect{X: 0, Y: 0, Width: 1024, Height: 512}, Zoom: 1}

	huge := testElement{id: uuid.New(), sel: geom.Rect{X: -1e7, Y: -1e7, Width: 2e7, Height: 2e7}}
	small := testElement{id: uuid.New(), sel: geom.Rect{X: 0, Y: 0, Width: 10, Height: 10}}

	r := tl.UpdateTileFor(vb, huge)
	tl.UpdateTileFor(vb, small)

	want := tl.Visible(vb).Grow(clipMargin)
	if r != want {
		t.Errorf("clipped range = %+v, want %+v", r, want)
	}
	if got, _ := tl.TilesOf(huge.id); len(got) != want.Count() {
		t.Errorf("huge occupies %d tiles, want %d", len(got), want.Count())
	}
	if !tl.IsClipped(huge.id) || tl.IsClipped(small.id) {
		t.Error("IsClipped mismatch")
	}
	if ids := tl.Clipped(); len(ids) != 1 || ids[0] != huge.id {
		t.Errorf("Clipped = %v", ids)
	}

	// Panning far away and updating again follows the viewbox.
	vb.Area.X = 512 * 1000
	r = tl.UpdateTileFor(vb, huge)
	if !r.Contains(Tile{X: 1000, Y: 0}) || r.Contains(Tile{X: 0, Y: 0}) {
		t.Errorf("range after pan = %+v", r)
	}

	// Shrinking the element below the limit drops the clipped mark.
	huge.sel = geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	tl.UpdateTileFor(vb, huge)
	if tl.IsClipped(huge.id) {
		t.Error("element still marked clipped")
	}

	huge.sel = geom.Rect{X: -1e7, Y: -1e7, Width: 2e7, Height: 2e7}
	tl.UpdateTileFor(vb, huge)
	tl.RemoveShape(huge.id)
	if tl.IsClipped(huge.id) {
		t.Error("removed element still marked clipped")
	}
	tl.UpdateTileFor(vb, huge)
	tl.InvalidateShapes()
	if len(tl.Clipped()) != 0 {
		t.Error("InvalidateShapes kept clipped marks")
	}
}
