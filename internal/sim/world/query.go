package world

import (
	"sort"

	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/feature/production"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/belt"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/power"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

// Queries return copies; none of them are safe to call concurrently with
// Step. Use View while Run is active.

func (w *World) Clock() float64      { return w.clock }
func (w *World) Width() int          { return w.tun.MapWidth }
func (w *World) Height() int         { return w.tun.MapHeight }
func (w *World) Power() power.Report { return w.power }

func (w *World) Tile(p geom.Pos) Tile {
	t := w.tileAt(p)
	if t.Parent != nil {
		o := *t.Parent
		t.Parent = &o
	}
	return t
}

func (w *World) Terrain(p geom.Pos) genpkg.Terrain { return w.terrain.Terrain(p.X, p.Y) }
func (w *World) Ore(p geom.Pos) catalogs.OreKind   { return w.terrain.Ore(p.X, p.Y) }

// Track returns a copy of the belt items at p.
func (w *World) Track(p geom.Pos) ([]belt.Item, bool) {
	tr := w.belts[p]
	if tr == nil {
		return nil, false
	}
	return append([]belt.Item(nil), tr.Items...), true
}

// Processor returns a copy of the processor state owning p.
func (w *World) Processor(p geom.Pos) (*production.State, bool) {
	o, _, ok := w.origin(p)
	if !ok || w.processors[o] == nil {
		return nil, false
	}
	return w.processors[o].Clone(), true
}

func (w *World) Storage(p geom.Pos) (StorageState, bool) {
	o, _, _ := w.origin(p)
	s := w.storages[o]
	if s == nil {
		return StorageState{}, false
	}
	return *s, true
}

func (w *World) Miner(p geom.Pos) (MinerState, bool) {
	o, _, _ := w.origin(p)
	m := w.miners[o]
	if m == nil {
		return MinerState{}, false
	}
	return *m, true
}

func (w *World) CoalGenerator(p geom.Pos) (CoalGeneratorState, bool) {
	o, _, _ := w.origin(p)
	g := w.coalGens[o]
	if g == nil {
		return CoalGeneratorState{}, false
	}
	return *g, true
}

func (w *World) Underground(p geom.Pos) (UndergroundState, bool) {
	u := w.undergrounds[p]
	if u == nil {
		return UndergroundState{}, false
	}
	c := *u
	if u.Linked != nil {
		l := *u.Linked
		c.Linked = &l
	}
	return c, true
}

func (w *World) LooseItems() []LooseItem {
	out := make([]LooseItem, len(w.loose))
	for i, it := range w.loose {
		out[i] = *it
	}
	return out
}

// Congestion is the blocked-transport heat at p in [0,1].
func (w *World) Congestion(p geom.Pos) float64 {
	if !w.inBounds(p) {
		return 0
	}
	return w.congestion[w.idx(p)]
}

// Building is a placed building's origin, kind and facing.
type Building struct {
	Pos  geom.Pos
	Kind catalogs.BuildingKind
	Dir  geom.Direction
}

// Buildings lists every building in row-major origin order.
func (w *World) Buildings() []Building {
	keys := sortedKeys(w.buildings)
	out := make([]Building, 0, len(keys))
	for _, p := range keys {
		out = append(out, Building{Pos: p, Kind: w.buildings[p], Dir: w.tileAt(p).Dir})
	}
	return out
}

func (w *World) Inventory() map[catalogs.ItemKind]int {
	out := make(map[catalogs.ItemKind]int, len(w.inventory))
	for k, n := range w.inventory {
		out[k] = n
	}
	return out
}

type RegionInfo struct {
	ID         int         `json:"id"`
	Bounds     genpkg.Rect `json:"bounds"`
	Unlocked   bool        `json:"unlocked"`
	UnlockCost int         `json:"unlock_cost"`
}

func (w *World) Regions() []RegionInfo {
	out := make([]RegionInfo, 0, len(w.terrain.Regions))
	for _, r := range w.terrain.Regions {
		out = append(out, RegionInfo{ID: r.ID, Bounds: r.Bounds, Unlocked: r.Unlocked, UnlockCost: r.UnlockCost})
	}
	return out
}

// RegionAt returns the id of the region holding p.
func (w *World) RegionAt(p geom.Pos) (int, bool) {
	r := w.terrain.RegionAt(p.X, p.Y)
	if r == nil {
		return 0, false
	}
	return r.ID, true
}

type Stats struct {
	Stored           map[catalogs.ItemKind]int `json:"stored"`
	Research         int                       `json:"research"`
	Unlocked         []catalogs.BuildingKind   `json:"unlocked"`
	Achieved         []string                  `json:"achieved"`
	PlatesPerMinute  float64                   `json:"plates_per_minute"`
	SciencePerMinute float64                   `json:"science_per_minute"`
}

func (w *World) Stats() Stats {
	s := Stats{
		Stored:           make(map[catalogs.ItemKind]int, len(w.ledger.Stored)),
		Research:         w.ledger.Research,
		Achieved:         w.ledger.AchievedIDs(),
		PlatesPerMinute:  w.plates.PerMinute(),
		SciencePerMinute: w.science.PerMinute(),
	}
	for k, n := range w.ledger.Stored {
		s.Stored[k] = n
	}
	for _, k := range w.cats.Buildings.Order {
		if w.ledger.IsUnlocked(k) {
			s.Unlocked = append(s.Unlocked, k)
		}
	}
	return s
}

// StateFrame builds the STATE message sessions receive, including events
// not yet broadcast.
func (w *World) StateFrame() protocol.StateMsg { return w.buildState() }

// IsUnlocked reports whether kind may be placed.
func (w *World) IsUnlocked(kind catalogs.BuildingKind) bool { return w.ledger.IsUnlocked(kind) }

// SetTerrain and SetOre override generated cells. Developer helpers for
// tools and fixed test layouts; they fail on locked regions.
func (w *World) SetTerrain(p geom.Pos, t genpkg.Terrain) bool {
	return w.terrain.SetTerrain(p.X, p.Y, t)
}

func (w *World) SetOre(p geom.Pos, ore catalogs.OreKind) bool {
	return w.terrain.SetOre(p.X, p.Y, ore)
}

func sortedItems(m map[catalogs.ItemKind]int) []catalogs.ItemKind {
	out := make([]catalogs.ItemKind, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
