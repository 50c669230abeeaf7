package store

import (
	"fmt"

	snapv1 "github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

// ExportRegions converts every region into snapshot form; locked regions
// carry no cells.
func ExportRegions(s *Store) []snapv1.RegionV1 {
	out := make([]snapv1.RegionV1, 0, len(s.Regions))
	for _, r := range s.Regions {
		rv := snapv1.RegionV1{ID: r.ID, Unlocked: r.Unlocked}
		if r.Cells != nil {
			rv.Terrain = make([]byte, len(r.Cells))
			rv.Ore = make([]byte, len(r.Cells))
			for i, c := range r.Cells {
				rv.Terrain[i] = byte(c.Terrain)
				rv.Ore[i] = oreByte(c.Ore)
			}
		}
		out = append(out, rv)
	}
	return out
}

// ImportRegions rebuilds a store from snapshot regions. The result is built
// fresh so a failed import leaves no partial state behind.
func ImportRegions(gen *genpkg.Generator, cfg Config, regions []snapv1.RegionV1) (*Store, error) {
	s := New(gen, cfg)
	for _, r := range s.Regions {
		r.Unlocked = false
		r.Cells = nil
		r.dirty = true
	}
	n := cfg.RegionSize * cfg.RegionSize
	for _, rv := range regions {
		r := s.Region(rv.ID)
		if r == nil {
			return nil, fmt.Errorf("region %d out of range", rv.ID)
		}
		if !rv.Unlocked {
			continue
		}
		if len(rv.Terrain) != n || len(rv.Ore) != n {
			return nil, fmt.Errorf("region %d cells length mismatch: got %d/%d want %d", rv.ID, len(rv.Terrain), len(rv.Ore), n)
		}
		cells := make([]genpkg.Cell, n)
		for i := range cells {
			t := genpkg.Terrain(rv.Terrain[i])
			if t == genpkg.Locked || t > genpkg.Mountain {
				return nil, fmt.Errorf("region %d cell %d: bad terrain %d", rv.ID, i, rv.Terrain[i])
			}
			ore, ok := oreFromByte(rv.Ore[i])
			if !ok {
				return nil, fmt.Errorf("region %d cell %d: bad ore %d", rv.ID, i, rv.Ore[i])
			}
			cells[i] = genpkg.Cell{Terrain: t, Ore: ore}
		}
		r.Cells = cells
		r.Unlocked = true
		_ = r.Digest()
	}
	return s, nil
}
