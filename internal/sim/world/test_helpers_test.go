package world

import (
	"testing"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

const tickDT = 1.0 / 60

func newBareWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := New(Config{ID: "test", Tuning: tuning.Defaults()}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

// newTestWorld returns a world whose starting regions are flat grass
// without ore, every building unlocked and plenty of materials.
func newTestWorld(t *testing.T) *World {
	t.Helper()
	w := newBareWorld(t)
	flatten(w)
	w.GrantResearch(1000)
	for _, it := range []catalogs.ItemKind{catalogs.ItemPlate, catalogs.ItemGear, catalogs.ItemCircuit, catalogs.ItemCopperPlate} {
		w.AddToInventory(it, 100000)
	}
	return w
}

// flatten turns every unlocked cell into ore-free grass.
func flatten(w *World) {
	for _, id := range w.terrain.UnlockedIDs() {
		b := w.terrain.Region(id).Bounds
		for y := b.Y; y < b.Y+b.H; y++ {
			for x := b.X; x < b.X+b.W; x++ {
				p := geom.Pos{X: x, Y: y}
				w.SetTerrain(p, genpkg.Grass)
				w.SetOre(p, catalogs.OreNone)
			}
		}
	}
}

func mustPlace(t *testing.T, w *World, x, y int, kind catalogs.BuildingKind, dir geom.Direction) geom.Pos {
	t.Helper()
	p := geom.Pos{X: x, Y: y}
	if err := w.PlaceBuilding(p, kind, dir); err != nil {
		t.Fatalf("place: %v", err)
	}
	return p
}

func beltRow(t *testing.T, w *World, x0, x1, y int, dir geom.Direction) {
	t.Helper()
	for x := x0; x <= x1; x++ {
		mustPlace(t, w, x, y, catalogs.KindConveyor, dir)
	}
}

func stepFor(w *World, seconds, dt float64) {
	n := int(seconds/dt + 0.5)
	for i := 0; i < n; i++ {
		w.Step(dt)
	}
}

// itemsInTransit counts items on belts and loose on the grid.
func itemsInTransit(w *World) int {
	n := len(w.loose)
	for _, tr := range w.belts {
		n += tr.Len()
	}
	return n
}
