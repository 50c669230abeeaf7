package store

import (
	"crypto/sha256"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

// Region is one square block of the map that unlocks as a unit. Cells is nil
// while the region is locked.
type Region struct {
	ID         int
	RX, RY     int
	Bounds     genpkg.Rect
	Unlocked   bool
	UnlockCost int
	Cells      []genpkg.Cell

	dirty bool
	hash  [32]byte
}

func (r *Region) index(x, y int) int {
	return (y-r.Bounds.Y)*r.Bounds.W + (x - r.Bounds.X)
}

func (r *Region) Get(x, y int) genpkg.Cell {
	if r.Cells == nil {
		return genpkg.Cell{Terrain: genpkg.Locked}
	}
	return r.Cells[r.index(x, y)]
}

func (r *Region) Digest() [32]byte {
	if r.dirty || r.hash == ([32]byte{}) {
		h := sha256.New()
		h.Write([]byte{boolByte(r.Unlocked)})
		for _, c := range r.Cells {
			h.Write([]byte{byte(c.Terrain), oreByte(c.Ore)})
		}
		copy(r.hash[:], h.Sum(nil))
		r.dirty = false
	}
	return r.hash
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// oreByte encodes an ore as 0 for none, else 1+its index in catalogs.Ores.
func oreByte(o catalogs.OreKind) byte {
	for i, k := range catalogs.Ores {
		if k == o {
			return byte(i + 1)
		}
	}
	return 0
}

func oreFromByte(b byte) (catalogs.OreKind, bool) {
	if b == 0 {
		return catalogs.OreNone, true
	}
	if int(b) > len(catalogs.Ores) {
		return catalogs.OreNone, false
	}
	return catalogs.Ores[b-1], true
}

type Config struct {
	Width, Height   int
	RegionSize      int
	BaseCost        int
	CostPerDistance int
}

type Store struct {
	Gen      *genpkg.Generator
	Cfg      Config
	RegionsX int
	RegionsY int
	Regions  []*Region
}

// New lays out the region grid and generates the four centre regions.
func New(gen *genpkg.Generator, cfg Config) *Store {
	if cfg.RegionSize <= 0 {
		cfg.RegionSize = 32
	}
	s := &Store{
		Gen:      gen,
		Cfg:      cfg,
		RegionsX: cfg.Width / cfg.RegionSize,
		RegionsY: cfg.Height / cfg.RegionSize,
	}
	cx, cy := s.RegionsX/2, s.RegionsY/2
	id := 0
	for ry := 0; ry < s.RegionsY; ry++ {
		for rx := 0; rx < s.RegionsX; rx++ {
			s.Regions = append(s.Regions, &Region{
				ID: id,
				RX: rx,
				RY: ry,
				Bounds: genpkg.Rect{
					X: rx * cfg.RegionSize, Y: ry * cfg.RegionSize,
					W: cfg.RegionSize, H: cfg.RegionSize,
				},
				UnlockCost: abs(rx-cx)*cfg.CostPerDistance + abs(ry-cy)*cfg.CostPerDistance + cfg.BaseCost,
				dirty:      true,
			})
			id++
		}
	}
	for _, r := range s.Regions {
		if r.RX >= cx-1 && r.RX <= cx && r.RY >= cy-1 && r.RY <= cy {
			s.generate(r)
		}
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
