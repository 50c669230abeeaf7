package store

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

func (s *Store) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Cfg.Width && y < s.Cfg.Height
}

// RegionAt returns the region holding (x,y), or nil out of bounds.
func (s *Store) RegionAt(x, y int) *Region {
	if !s.InBounds(x, y) {
		return nil
	}
	rx, ry := x/s.Cfg.RegionSize, y/s.Cfg.RegionSize
	return s.Regions[ry*s.RegionsX+rx]
}

func (s *Store) Region(id int) *Region {
	if id < 0 || id >= len(s.Regions) {
		return nil
	}
	return s.Regions[id]
}

// Terrain is Locked for cells out of bounds or in locked regions.
func (s *Store) Terrain(x, y int) genpkg.Terrain {
	r := s.RegionAt(x, y)
	if r == nil {
		return genpkg.Locked
	}
	return r.Get(x, y).Terrain
}

func (s *Store) Ore(x, y int) catalogs.OreKind {
	r := s.RegionAt(x, y)
	if r == nil {
		return catalogs.OreNone
	}
	return r.Get(x, y).Ore
}

// SetOre overrides one cell's deposit. Used by tools and tests that need a
// fixed layout.
func (s *Store) SetOre(x, y int, ore catalogs.OreKind) bool {
	r := s.RegionAt(x, y)
	if r == nil || r.Cells == nil {
		return false
	}
	r.Cells[r.index(x, y)].Ore = ore
	r.dirty = true
	return true
}

// SetTerrain overrides one cell's terrain in an unlocked region.
func (s *Store) SetTerrain(x, y int, t genpkg.Terrain) bool {
	r := s.RegionAt(x, y)
	if r == nil || r.Cells == nil || t == genpkg.Locked {
		return false
	}
	c := &r.Cells[r.index(x, y)]
	c.Terrain = t
	if t != genpkg.Grass {
		c.Ore = catalogs.OreNone
	}
	r.dirty = true
	return true
}

// UnlockedIDs lists unlocked region ids in order.
func (s *Store) UnlockedIDs() []int {
	var out []int
	for _, r := range s.Regions {
		if r.Unlocked {
			out = append(out, r.ID)
		}
	}
	return out
}
