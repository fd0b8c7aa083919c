package tiles

import "github.com/inamate/inamate/render-core/internal/surface"

// SurfaceCache maps tiles to pooled surfaces. Entries are created lazily and
// dropped wholesale on invalidation. The cache holds any number of entries;
// the pool bounds how many distinct surfaces back them. A slot belongs to at
// most one tile: when the pool hands out a slot that is still cached for
// another tile, that older entry is dropped.
type SurfaceCache struct {
	pool  *surface.Pool
	grid  map[Tile]*surface.Slot
	owner map[*surface.Slot]Tile
}

// NewSurfaceCache returns an empty cache drawing from pool.
func NewSurfaceCache(pool *surface.Pool) *SurfaceCache {
	return &SurfaceCache{
		pool:  pool,
		grid:  make(map[Tile]*surface.Slot),
		owner: make(map[*surface.Slot]Tile),
	}
}

// Has reports whether tile has a cached surface.
func (c *SurfaceCache) Has(tile Tile) bool {
	_, ok := c.grid[tile]
	return ok
}

// Get returns the cached surface for tile, if any.
func (c *SurfaceCache) Get(tile Tile) (*surface.Slot, bool) {
	s, ok := c.grid[tile]
	return s, ok
}

// GetOrCreate draws a fresh surface from the pool and records it for tile,
// replacing any previous entry. It returns surface.ErrPoolExhausted when the
// pool has nothing to give; the previous entry is kept in that case.
func (c *SurfaceCache) GetOrCreate(tile Tile) (*surface.Slot, error) {
	s, err := c.pool.Allocate()
	if err != nil {
		return nil, err
	}
	c.Set(tile, s)
	return s, nil
}

// Set installs s for tile directly.
func (c *SurfaceCache) Set(tile Tile, s *surface.Slot) {
	if prev, ok := c.owner[s]; ok && prev != tile {
		delete(c.grid, prev)
	}
	if prev, ok := c.grid[tile]; ok && prev != s {
		delete(c.owner, prev)
		c.pool.Release(prev)
	}
	c.grid[tile] = s
	c.owner[s] = tile
}

// Remove drops the entry for tile. It returns false if there was none.
func (c *SurfaceCache) Remove(tile Tile) bool {
	s, ok := c.grid[tile]
	if !ok {
		return false
	}
	c.drop(tile, s)
	return true
}

// Retain drops every entry whose tile fails keep and returns how many were
// dropped.
func (c *SurfaceCache) Retain(keep func(Tile) bool) int {
	n := 0
	for tile, s := range c.grid {
		if keep(tile) {
			continue
		}
		c.drop(tile, s)
		n++
	}
	return n
}

func (c *SurfaceCache) drop(tile Tile, s *surface.Slot) {
	delete(c.grid, tile)
	delete(c.owner, s)
	c.pool.Release(s)
}

// Clear drops every entry and hands the surfaces back to the pool.
func (c *SurfaceCache) Clear() {
	for _, s := range c.grid {
		c.pool.Release(s)
	}
	clear(c.grid)
	clear(c.owner)
}

// Len returns the number of cached tiles.
func (c *SurfaceCache) Len() int { return len(c.grid) }
