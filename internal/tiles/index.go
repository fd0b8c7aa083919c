package tiles

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// Index is a bidirectional tile <-> element membership map. Both directions
// are only ever changed together: for every tile T and element E, E is in
// the set of T exactly when T is in the set of E. Empty sets are dropped.
type Index struct {
	grid  map[Tile]map[uuid.UUID]struct{}
	index map[uuid.UUID]map[Tile]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		grid:  make(map[Tile]map[uuid.UUID]struct{}),
		index: make(map[uuid.UUID]map[Tile]struct{}),
	}
}

// AddShapeAt registers id in tile.
func (ix *Index) AddShapeAt(tile Tile, id uuid.UUID) {
	shapes, ok := ix.grid[tile]
	if !ok {
		shapes = make(map[uuid.UUID]struct{})
		ix.grid[tile] = shapes
	}
	tiles, ok := ix.index[id]
	if !ok {
		tiles = make(map[Tile]struct{})
		ix.index[id] = tiles
	}
	shapes[id] = struct{}{}
	tiles[tile] = struct{}{}
}

// RemoveShape drops id from every tile it belongs to. It reports whether id
// was registered anywhere.
func (ix *Index) RemoveShape(id uuid.UUID) bool {
	tiles, ok := ix.index[id]
	if !ok {
		return false
	}
	for tile := range tiles {
		ix.unlinkTile(tile, id)
	}
	delete(ix.index, id)
	return true
}

// RemoveShapeAt drops the single membership of id in tile. It returns false
// when no shapes are registered at tile.
func (ix *Index) RemoveShapeAt(tile Tile, id uuid.UUID) bool {
	if _, ok := ix.grid[tile]; !ok {
		return false
	}
	ix.unlinkTile(tile, id)
	ix.unlinkShape(id, tile)
	return true
}

// RemoveAllShapesAt empties tile. Elements registered elsewhere keep their
// other memberships. It returns false when no shapes are registered at
// tile.
func (ix *Index) RemoveAllShapesAt(tile Tile) bool {
	shapes, ok := ix.grid[tile]
	if !ok {
		return false
	}
	for id := range shapes {
		ix.unlinkShape(id, tile)
	}
	delete(ix.grid, tile)
	return true
}

func (ix *Index) unlinkTile(tile Tile, id uuid.UUID) {
	shapes, ok := ix.grid[tile]
	if !ok {
		return
	}
	delete(shapes, id)
	if len(shapes) == 0 {
		delete(ix.grid, tile)
	}
}

func (ix *Index) unlinkShape(id uuid.UUID, tile Tile) {
	tiles, ok := ix.index[id]
	if !ok {
		return
	}
	delete(tiles, tile)
	if len(tiles) == 0 {
		delete(ix.index, id)
	}
}

// HasShapesAt reports whether any element is registered in tile.
func (ix *Index) HasShapesAt(tile Tile) bool {
	_, ok := ix.grid[tile]
	return ok
}

// ShapesAt returns the elements registered in tile, sorted. ok is false for
// tiles with no elements.
func (ix *Index) ShapesAt(tile Tile) (ids []uuid.UUID, ok bool) {
	shapes, ok := ix.grid[tile]
	if !ok {
		return nil, false
	}
	ids = make([]uuid.UUID, 0, len(shapes))
	for id := range shapes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return ids, true
}

// TilesOf returns the tiles id is registered in, sorted row by row. ok is
// false for unknown elements.
func (ix *Index) TilesOf(id uuid.UUID) (tiles []Tile, ok bool) {
	set, ok := ix.index[id]
	if !ok {
		return nil, false
	}
	tiles = make([]Tile, 0, len(set))
	for t := range set {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, compareTiles)
	return tiles, true
}

func compareTiles(a, b Tile) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// Count returns the number of elements registered in tile.
func (ix *Index) Count(tile Tile) int {
	return len(ix.grid[tile])
}

// Len returns the number of non-empty tiles.
func (ix *Index) Len() int { return len(ix.grid) }

// Shapes returns the number of elements with at least one tile.
func (ix *Index) Shapes() int { return len(ix.index) }

// Clear empties both directions.
func (ix *Index) Clear() {
	clear(ix.grid)
	clear(ix.index)
}
