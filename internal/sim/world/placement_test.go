package world

import (
	"errors"
	"reflect"
	"testing"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

func TestPlaceBuilding_Rejections(t *testing.T) {
	w := newTestWorld(t)
	w.SetTerrain(geom.Pos{X: 105, Y: 105}, genpkg.Water)
	mustPlace(t, w, 111, 110, catalogs.KindStorage, geom.None)
	mustPlace(t, w, 120, 110, catalogs.KindConveyor, geom.East)
	mustPlace(t, w, 130, 111, catalogs.KindSmelter, geom.None)

	cases := []struct {
		name string
		pos  geom.Pos
		kind catalogs.BuildingKind
		dir  geom.Direction
		want error
	}{
		{"unknown kind", geom.Pos{X: 100, Y: 100}, "NOPE", geom.East, ErrUnknownBuilding},
		{"off map", geom.Pos{X: -1, Y: 0}, catalogs.KindConveyor, geom.East, ErrOutOfBounds},
		{"locked region", geom.Pos{X: 10, Y: 10}, catalogs.KindConveyor, geom.East, ErrRegionLocked},
		{"water", geom.Pos{X: 105, Y: 105}, catalogs.KindConveyor, geom.East, ErrUnbuildable},
		{"miner without ore", geom.Pos{X: 100, Y: 101}, catalogs.KindMiner, geom.None, ErrNoOre},
		{"footprint overlaps storage", geom.Pos{X: 110, Y: 111}, catalogs.KindSmelter, geom.None, ErrFootprintBlocked},
		{"same belt again", geom.Pos{X: 120, Y: 110}, catalogs.KindConveyor, geom.East, ErrUnchanged},
		{"belt over smelter cell", geom.Pos{X: 131, Y: 110}, catalogs.KindConveyor, geom.East, ErrFootprintBlocked},
		{"belt over smelter origin", geom.Pos{X: 130, Y: 111}, catalogs.KindConveyor, geom.East, ErrFootprintBlocked},
	}
	for _, tc := range cases {
		before := w.Inventory()
		n := len(w.Buildings())
		err := w.PlaceBuilding(tc.pos, tc.kind, tc.dir)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.want)
		}
		if !reflect.DeepEqual(before, w.Inventory()) || len(w.Buildings()) != n {
			t.Fatalf("%s: rejected placement changed the world", tc.name)
		}
	}
}

func TestPlaceBuilding_LockedAndUnaffordable(t *testing.T) {
	w := newBareWorld(t)
	flatten(w)
	err := w.PlaceBuilding(geom.Pos{X: 100, Y: 100}, catalogs.KindFastConveyor, geom.East)
	if !errors.Is(err, ErrBuildingLocked) {
		t.Fatalf("err=%v want ErrBuildingLocked", err)
	}
	if CodeFor(err) != "E_NO_PERMISSION" {
		t.Fatalf("code=%q", CodeFor(err))
	}

	w.inventory = map[catalogs.ItemKind]int{}
	err = w.PlaceBuilding(geom.Pos{X: 100, Y: 100}, catalogs.KindConveyor, geom.East)
	if !errors.Is(err, ErrInsufficientMaterials) {
		t.Fatalf("err=%v want ErrInsufficientMaterials", err)
	}
	if !w.Tile(geom.Pos{X: 100, Y: 100}).Empty() {
		t.Fatalf("tile written on rejection")
	}
}

func TestPlaceRemove_RoundTrip(t *testing.T) {
	w := newTestWorld(t)
	plates := w.GetCount(catalogs.ItemPlate)
	gears := w.GetCount(catalogs.ItemGear)
	o := mustPlace(t, w, 140, 120, catalogs.KindSmelter, geom.None)
	if w.GetCount(catalogs.ItemPlate) != plates-8 || w.GetCount(catalogs.ItemGear) != gears-4 {
		t.Fatalf("smelter cost not charged")
	}
	for _, c := range []geom.Pos{{X: 140, Y: 119}, {X: 141, Y: 119}, {X: 141, Y: 120}} {
		tile := w.Tile(c)
		if tile.Kind != catalogs.KindSmelter || tile.Parent == nil || *tile.Parent != o {
			t.Fatalf("cell %s=%+v want smelter child of %s", c, tile, o)
		}
	}
	if _, ok := w.Processor(o); !ok {
		t.Fatalf("no processor state")
	}

	// Removing through any footprint cell clears the whole building.
	if !w.RemoveBuilding(geom.Pos{X: 141, Y: 119}) {
		t.Fatalf("remove failed")
	}
	for _, c := range []geom.Pos{o, {X: 140, Y: 119}, {X: 141, Y: 119}, {X: 141, Y: 120}} {
		if !w.Tile(c).Empty() {
			t.Fatalf("cell %s still occupied", c)
		}
	}
	if _, ok := w.Processor(o); ok {
		t.Fatalf("processor state left behind")
	}
	if w.RemoveBuilding(o) {
		t.Fatalf("second remove reported success")
	}
}

func TestPlaceBuilding_ReplacesBeltDirection(t *testing.T) {
	w := newTestWorld(t)
	p := mustPlace(t, w, 150, 150, catalogs.KindConveyor, geom.East)
	w.belts[p].Add(catalogs.ItemOre, 0, 0.3, 0)
	mustPlace(t, w, 150, 150, catalogs.KindConveyor, geom.South)
	if d := w.Tile(p).Dir; d != geom.South {
		t.Fatalf("dir=%v want S", d)
	}
	if items, _ := w.Track(p); len(items) != 0 {
		t.Fatalf("replaced belt kept items %+v", items)
	}
}

func TestRotate_OnlyDirectionalBuildings(t *testing.T) {
	w := newTestWorld(t)
	b := mustPlace(t, w, 100, 150, catalogs.KindConveyor, geom.North)
	s := mustPlace(t, w, 102, 150, catalogs.KindStorage, geom.None)
	for _, want := range []geom.Direction{geom.East, geom.South, geom.West, geom.North} {
		if !w.Rotate(b) {
			t.Fatalf("rotate failed")
		}
		if d := w.Tile(b).Dir; d != want {
			t.Fatalf("dir=%v want %v", d, want)
		}
	}
	if w.Rotate(s) {
		t.Fatalf("storage rotated")
	}
	if w.Rotate(geom.Pos{X: 104, Y: 150}) {
		t.Fatalf("empty cell rotated")
	}
}

func TestUnlockRegion(t *testing.T) {
	w := newTestWorld(t)
	id, ok := w.RegionAt(geom.Pos{X: 10, Y: 10})
	if !ok {
		t.Fatalf("no region at (10,10)")
	}
	var cost int
	for _, r := range w.Regions() {
		if r.ID == id {
			cost = r.UnlockCost
		}
	}
	plates := w.GetCount(catalogs.ItemPlate)
	if err := w.UnlockRegion(id); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if got := w.GetCount(catalogs.ItemPlate); got != plates-cost {
		t.Fatalf("plates=%d want %d", got, plates-cost)
	}
	if w.Terrain(geom.Pos{X: 10, Y: 10}) == genpkg.Locked {
		t.Fatalf("terrain still locked")
	}
	if err := w.UnlockRegion(id); !errors.Is(err, ErrUnchanged) {
		t.Fatalf("second unlock err=%v", err)
	}
	if err := w.UnlockRegion(9999); !errors.Is(err, ErrUnknownRegion) {
		t.Fatalf("bad id err=%v", err)
	}
}
