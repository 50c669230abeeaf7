package world

import (
	"fmt"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/feature/production"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/belt"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/footprint"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

type placeOpts struct {
	// free skips the unlock and cost checks; used when replaying a save.
	free bool
}

// PlaceBuilding puts kind with its origin at pos. The origin is the
// bottom-left cell of multi-block footprints. Nothing changes on rejection.
func (w *World) PlaceBuilding(pos geom.Pos, kind catalogs.BuildingKind, dir geom.Direction) error {
	if err := w.place(pos, kind, dir, placeOpts{}); err != nil {
		return fmt.Errorf("place %s at %s: %w", kind, pos, err)
	}
	return nil
}

func (w *World) place(pos geom.Pos, kind catalogs.BuildingKind, dir geom.Direction, opts placeOpts) error {
	def, ok := w.cats.Building(kind)
	if !ok {
		return ErrUnknownBuilding
	}
	if !w.inBounds(pos) {
		return ErrOutOfBounds
	}
	switch t := w.terrain.Terrain(pos.X, pos.Y); {
	case t == genpkg.Locked:
		return ErrRegionLocked
	case !t.Buildable():
		return ErrUnbuildable
	}
	if !opts.free && !w.ledger.IsUnlocked(kind) {
		return ErrBuildingLocked
	}
	dir = placementDir(def, dir)

	size := def.Size
	cells := footprint.Cells(pos, size)
	if def.Class == catalogs.ClassMiner && !w.oreUnder(cells) {
		return ErrNoOre
	}

	replacing := false
	if size > 1 {
		for _, c := range cells {
			if !w.inBounds(c) {
				return ErrOutOfBounds
			}
			switch t := w.terrain.Terrain(c.X, c.Y); {
			case t == genpkg.Locked:
				return ErrRegionLocked
			case !t.Buildable():
				return ErrUnbuildable
			}
			if !w.tileAt(c).Empty() {
				return ErrFootprintBlocked
			}
		}
	} else if cur := w.tileAt(pos); !cur.Empty() {
		if cur.Parent != nil || w.sizeOf(cur.Kind) > 1 {
			return ErrFootprintBlocked
		}
		if cur.Kind == kind && cur.Dir == dir {
			return ErrUnchanged
		}
		replacing = true
	}

	if !opts.free {
		for _, c := range def.Cost {
			if w.inventory[c.Item] < c.Count {
				return ErrInsufficientMaterials
			}
		}
		for _, c := range def.Cost {
			w.takeFromInventory(c.Item, c.Count)
		}
	}
	if replacing {
		w.removeAt(pos)
	}

	for _, c := range cells {
		t := Tile{Kind: kind, Dir: dir}
		if c != pos {
			o := pos
			t.Parent = &o
		}
		w.setTile(c, t)
	}
	w.buildings[pos] = kind
	w.addState(pos, def, dir)
	w.audit("PLACE", pos, string(kind), "", map[string]any{"dir": dir.String()})
	w.checkAchievements()
	return nil
}

// placementDir keeps the requested facing for belts, junctions, miners and
// processors; everything else is placed without one.
func placementDir(def catalogs.BuildingDef, dir geom.Direction) geom.Direction {
	if !dir.Valid() {
		dir = geom.None
	}
	switch {
	case def.UsesDirection:
		if dir == geom.None {
			return geom.East
		}
		return dir
	case def.Class == catalogs.ClassMiner, def.Class == catalogs.ClassProcessor:
		return dir
	}
	return geom.None
}

func (w *World) oreUnder(cells []geom.Pos) bool {
	for _, c := range cells {
		if w.inBounds(c) && w.terrain.Ore(c.X, c.Y) != catalogs.OreNone {
			return true
		}
	}
	return false
}

func (w *World) addState(pos geom.Pos, def catalogs.BuildingDef, dir geom.Direction) {
	switch def.Class {
	case catalogs.ClassBelt:
		w.belts[pos] = belt.New()
	case catalogs.ClassMiner:
		w.miners[pos] = &MinerState{Timer: w.tun.Miners.IntervalSeconds}
	case catalogs.ClassProcessor:
		w.processors[pos] = production.New(def)
	case catalogs.ClassStorage:
		w.storages[pos] = &StorageState{}
	case catalogs.ClassSplitter:
		w.splitters[pos] = &Cursor{}
	case catalogs.ClassRouter:
		w.routers[pos] = &Cursor{}
	case catalogs.ClassCoalGenerator:
		w.coalGens[pos] = &CoalGeneratorState{}
	case catalogs.ClassUndergroundEntry, catalogs.ClassUndergroundExit:
		w.undergrounds[pos] = &UndergroundState{Dir: dir}
		w.linkUnderground(pos)
	}
}

// RemoveBuilding clears the building covering pos, its state and any loose
// items inside or touching its footprint.
func (w *World) RemoveBuilding(pos geom.Pos) bool {
	if !w.inBounds(pos) {
		return false
	}
	origin, t, ok := w.origin(pos)
	if !ok {
		return false
	}
	w.removeAt(origin)
	w.audit("REMOVE", origin, string(t.Kind), "", nil)
	return true
}

func (w *World) removeAt(origin geom.Pos) {
	t := w.tileAt(origin)
	size := w.sizeOf(t.Kind)
	for _, c := range footprint.Cells(origin, size) {
		if w.inBounds(c) {
			w.setTile(c, Tile{})
		}
	}
	if ug := w.undergrounds[origin]; ug != nil && ug.Linked != nil {
		if other := w.undergrounds[*ug.Linked]; other != nil {
			other.Linked = nil
		}
	}
	delete(w.buildings, origin)
	delete(w.belts, origin)
	delete(w.miners, origin)
	delete(w.processors, origin)
	delete(w.storages, origin)
	delete(w.splitters, origin)
	delete(w.routers, origin)
	delete(w.undergrounds, origin)
	delete(w.coalGens, origin)

	ring := map[geom.Pos]bool{}
	for _, e := range footprint.ExternalEdges(origin, size) {
		ring[e.Pos] = true
	}
	kept := w.loose[:0]
	for _, it := range w.loose {
		if footprint.Contains(origin, size, it.Pos) || ring[it.Pos] {
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(w.loose); i++ {
		w.loose[i] = nil
	}
	w.loose = kept
}

// Rotate turns a direction-bearing building clockwise.
func (w *World) Rotate(pos geom.Pos) bool {
	origin, t, ok := w.origin(pos)
	if !ok {
		return false
	}
	def, ok := w.cats.Building(t.Kind)
	if !ok || !def.UsesDirection {
		return false
	}
	nd := t.Dir.RotateCW()
	for _, c := range footprint.Cells(origin, def.Size) {
		ct := w.tileAt(c)
		ct.Dir = nd
		w.setTile(c, ct)
	}
	if ug := w.undergrounds[origin]; ug != nil {
		if ug.Linked != nil {
			if other := w.undergrounds[*ug.Linked]; other != nil {
				other.Linked = nil
			}
			ug.Linked = nil
		}
		ug.Dir = nd
		w.linkUnderground(origin)
	}
	w.audit("ROTATE", origin, string(t.Kind), "", map[string]any{"dir": nd.String()})
	return true
}

// linkUnderground pairs an entry with the first unlinked exit of the same
// facing within range ahead of it, or an exit with an entry behind it.
func (w *World) linkUnderground(pos geom.Pos) {
	ug := w.undergrounds[pos]
	if ug == nil || ug.Linked != nil {
		return
	}
	cls := w.classAt(pos)
	want := catalogs.ClassUndergroundExit
	step := ug.Dir
	if cls == catalogs.ClassUndergroundExit {
		want = catalogs.ClassUndergroundEntry
		step = ug.Dir.Opposite()
	}
	p := pos
	for i := 0; i < w.tun.UndergroundRange; i++ {
		p = p.Step(step)
		if !w.inBounds(p) {
			return
		}
		if w.classAt(p) != want {
			continue
		}
		other := w.undergrounds[p]
		if other == nil || other.Dir != ug.Dir || other.Linked != nil {
			continue
		}
		a, b := p, pos
		ug.Linked = &a
		other.Linked = &b
		return
	}
}
