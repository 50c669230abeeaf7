// Package gen produces region terrain and ore deposits. Output depends only
// on the world seed and the region, so a region generates identically no
// matter when it is unlocked.
package gen

import (
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/mathx"
)

type Terrain uint8

const (
	Locked Terrain = iota
	Grass
	Water
	Mountain
)

func (t Terrain) String() string {
	switch t {
	case Grass:
		return "GRASS"
	case Water:
		return "WATER"
	case Mountain:
		return "MOUNTAIN"
	default:
		return "LOCKED"
	}
}

// Buildable reports whether buildings may stand on t.
func (t Terrain) Buildable() bool { return t == Grass }

type Params struct {
	Seed          int64
	NoiseScale    float64
	WaterBelow    float64
	MountainAbove float64
}

// Rect is a region's cell bounds: X..X+W-1, Y..Y+H-1.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

type Cell struct {
	Terrain Terrain
	Ore     catalogs.OreKind
}

type Generator struct {
	p     Params
	noise *perlin.Perlin
}

func New(p Params) *Generator {
	if p.NoiseScale <= 0 {
		p.NoiseScale = 0.08
	}
	return &Generator{
		p:     p,
		noise: perlin.NewPerlin(2, 2, 3, p.Seed),
	}
}

// Noise is the terrain field at a cell, in [0,1].
func (g *Generator) Noise(x, y int) float64 {
	v := (g.noise.Noise2D(float64(x)*g.p.NoiseScale, float64(y)*g.p.NoiseScale) + 1) / 2
	return mathx.Clamp(v, 0, 1)
}

func (g *Generator) TerrainAt(x, y int) Terrain {
	n := g.Noise(x, y)
	switch {
	case n < g.p.WaterBelow:
		return Water
	case n > g.p.MountainAbove:
		return Mountain
	default:
		return Grass
	}
}

type oreRule struct {
	ore        catalogs.OreKind
	count      func(id int) int
	rMin, rMax int // inclusive
}

var oreRules = []oreRule{
	{catalogs.OreIron, func(id int) int { return 3 + id%3 }, 2, 4},
	{catalogs.OreCopper, func(id int) int { return 2 + (id/2)%3 }, 2, 3},
	{catalogs.OreCoal, func(id int) int { return 2 + (id/3)%2 }, 2, 3},
	{catalogs.OreGold, func(id int) int {
		if id < 2 {
			return 0
		}
		return 1 + id%2
	}, 1, 2},
	{catalogs.OreTitanium, func(id int) int {
		if id < 3 {
			return 0
		}
		return 1 + id%2
	}, 1, 2},
	{catalogs.OreUranium, func(id int) int {
		if id < 4 {
			return 0
		}
		return 1
	}, 1, 1},
}

// OreClusters returns how many clusters of ore region id receives.
func OreClusters(id int, ore catalogs.OreKind) int {
	for _, r := range oreRules {
		if r.ore == ore {
			return r.count(id)
		}
	}
	return 0
}

// Region generates the cells of region id, row-major over bounds.
func (g *Generator) Region(id int, bounds Rect, rx, ry int) []Cell {
	cells := make([]Cell, bounds.W*bounds.H)
	idx := func(x, y int) int { return (y-bounds.Y)*bounds.W + (x - bounds.X) }
	for y := bounds.Y; y < bounds.Y+bounds.H; y++ {
		for x := bounds.X; x < bounds.X+bounds.W; x++ {
			cells[idx(x, y)].Terrain = g.TerrainAt(x, y)
		}
	}

	rng := rand.New(rand.NewSource(int64(mathx.Hash2(g.p.Seed, rx, ry))))
	margin := 3
	for _, rule := range oreRules {
		n := rule.count(id)
		for i := 0; i < n; i++ {
			cx := bounds.X + pick(rng, margin, bounds.W-margin)
			cy := bounds.Y + pick(rng, margin, bounds.H-margin)
			radius := rule.rMin + rng.Intn(rule.rMax-rule.rMin+1)
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					x, y := cx+dx, cy+dy
					if !bounds.Contains(x, y) {
						continue
					}
					c := &cells[idx(x, y)]
					if c.Terrain != Grass {
						continue
					}
					if math.Sqrt(float64(dx*dx+dy*dy)) <= float64(radius)+rng.Float64()*0.5 {
						c.Ore = rule.ore
					}
				}
			}
		}
	}
	return cells
}

// pick returns a value in [lo,hi), or lo when the range is empty.
func pick(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo)
}
