package world

import (
	"fmt"
	"math"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/belt"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/rates"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
	"github.com/loguhan/FactoryGame/internal/sim/world/terrain/store"
)

// ImportSave replaces the world state with s. The save is rebuilt into a
// scratch world first; any error wraps snapshot.ErrInvalidSave and leaves
// the current state untouched.
func (w *World) ImportSave(s snapshot.SaveV1) error {
	nw, err := w.restore(s)
	if err != nil {
		return fmt.Errorf("%w: %v", snapshot.ErrInvalidSave, err)
	}
	w.adopt(nw)
	return nil
}

func (w *World) restore(s snapshot.SaveV1) (*World, error) {
	if s.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported version %d", s.Header.Version)
	}
	if s.Width != w.tun.MapWidth || s.Height != w.tun.MapHeight || s.RegionSize != w.tun.RegionSize {
		return nil, fmt.Errorf("map %dx%d/%d does not match %dx%d/%d",
			s.Width, s.Height, s.RegionSize, w.tun.MapWidth, w.tun.MapHeight, w.tun.RegionSize)
	}
	if s.ItemsDigest == "" {
		return nil, fmt.Errorf("missing item palette digest")
	}
	if s.ItemsDigest != w.cats.Items.PaletteDigest {
		return nil, fmt.Errorf("item palette digest mismatch")
	}
	if math.IsNaN(s.Clock) || s.Clock < 0 {
		return nil, fmt.Errorf("bad clock %v", s.Clock)
	}

	nw := &World{cfg: w.cfg, tun: w.tun, cats: w.cats, rng: w.rng}
	nw.reset(s.Seed)
	gen := genpkg.New(genpkg.Params{
		Seed:          s.Seed,
		NoiseScale:    w.tun.Regions.NoiseScale,
		WaterBelow:    w.tun.Regions.WaterBelow,
		MountainAbove: w.tun.Regions.MountainAbove,
	})
	terrain, err := store.ImportRegions(gen, nw.storeConfig(), s.Regions)
	if err != nil {
		return nil, err
	}
	nw.terrain = terrain

	if err := nw.replayTiles(s.Tiles); err != nil {
		return nil, err
	}
	if err := nw.overlayState(s); err != nil {
		return nil, err
	}
	if err := nw.overlayLedger(s); err != nil {
		return nil, err
	}
	nw.clock = s.Clock
	nw.tick.Store(s.Header.Tick)
	nw.systemPower()
	return nw, nil
}

// replayTiles places every origin for free, then checks the grid it built
// matches the saved one cell for cell.
func (w *World) replayTiles(tiles []snapshot.TileV1) error {
	for _, tv := range tiles {
		if tv.HasParent {
			continue
		}
		kind := catalogs.BuildingKind(tv.Kind)
		dir := geom.Direction(tv.Dir)
		if !dir.Valid() {
			return fmt.Errorf("tile (%d,%d): bad dir %d", tv.X, tv.Y, tv.Dir)
		}
		p := posOf(tv.X, tv.Y)
		if !w.tileAt(p).Empty() {
			return fmt.Errorf("tile %s: overlaps another building", p)
		}
		if err := w.place(p, kind, dir, placeOpts{free: true}); err != nil {
			return fmt.Errorf("tile %s: %w", p, err)
		}
	}
	n := 0
	for _, t := range w.tiles {
		if !t.Empty() {
			n++
		}
	}
	if n != len(tiles) {
		return fmt.Errorf("tile count %d does not match footprints %d", len(tiles), n)
	}
	for _, tv := range tiles {
		p := posOf(tv.X, tv.Y)
		got := w.tileAt(p)
		if string(got.Kind) != tv.Kind || uint8(got.Dir) != tv.Dir {
			return fmt.Errorf("tile %s: saved %s/%d rebuilt %s/%d", p, tv.Kind, tv.Dir, got.Kind, got.Dir)
		}
		if tv.HasParent != (got.Parent != nil) {
			return fmt.Errorf("tile %s: parent mismatch", p)
		}
		if tv.HasParent && *got.Parent != posOf(tv.ParentX, tv.ParentY) {
			return fmt.Errorf("tile %s: parent mismatch", p)
		}
	}
	return nil
}

func (w *World) knownItem(s string) (catalogs.ItemKind, error) {
	k := catalogs.ItemKind(s)
	if _, ok := w.cats.Items.Defs[k]; !ok {
		return "", fmt.Errorf("unknown item %q", s)
	}
	return k, nil
}

func (w *World) overlayState(s snapshot.SaveV1) error {
	for _, mv := range s.Miners {
		m := w.miners[posOf(mv.X, mv.Y)]
		if m == nil {
			return fmt.Errorf("miner state at (%d,%d) without miner", mv.X, mv.Y)
		}
		m.Timer = mv.Timer
	}
	for _, pv := range s.Processors {
		p := w.processors[posOf(pv.X, pv.Y)]
		if p == nil {
			return fmt.Errorf("processor state at (%d,%d) without processor", pv.X, pv.Y)
		}
		for _, id := range []string{pv.RecipeID, pv.ActiveID} {
			if id == "" {
				continue
			}
			if r, ok := w.cats.Recipes.ByID[id]; !ok || r.Station != p.Kind {
				return fmt.Errorf("processor (%d,%d): bad recipe %q", pv.X, pv.Y, id)
			}
		}
		p.RecipeID = pv.RecipeID
		p.ActiveID = pv.ActiveID
		for name, n := range pv.Input {
			k, err := w.knownItem(name)
			if err != nil {
				return err
			}
			if n > 0 {
				p.Input[k] = n
			}
		}
		for _, name := range pv.Output {
			k, err := w.knownItem(name)
			if err != nil {
				return err
			}
			p.Output = append(p.Output, k)
		}
		p.CraftTimer = pv.CraftTimer
		p.Crafting = pv.Crafting
		p.BurnTime = pv.BurnTime
		p.RequiresFuel = pv.RequiresFuel
		p.DumpCursor = pv.DumpCursor
	}
	for _, sv := range s.Storages {
		st := w.storages[posOf(sv.X, sv.Y)]
		if st == nil {
			return fmt.Errorf("storage state at (%d,%d) without storage", sv.X, sv.Y)
		}
		st.Count = sv.Count
	}
	for _, cv := range s.Splitters {
		c := w.splitters[posOf(cv.X, cv.Y)]
		if c == nil {
			return fmt.Errorf("splitter state at (%d,%d) without splitter", cv.X, cv.Y)
		}
		c.Index = cv.Index
	}
	for _, cv := range s.Routers {
		c := w.routers[posOf(cv.X, cv.Y)]
		if c == nil {
			return fmt.Errorf("router state at (%d,%d) without router", cv.X, cv.Y)
		}
		c.Index = cv.Index
	}
	for _, gv := range s.CoalGenerators {
		g := w.coalGens[posOf(gv.X, gv.Y)]
		if g == nil {
			return fmt.Errorf("generator state at (%d,%d) without coal generator", gv.X, gv.Y)
		}
		g.FuelTimer = gv.FuelTimer
		g.HasFuel = gv.HasFuel
	}

	// Links come from the save, not from replay order.
	if len(s.Undergrounds) > 0 {
		for _, u := range w.undergrounds {
			u.Linked = nil
		}
	}
	for _, uv := range s.Undergrounds {
		p := posOf(uv.X, uv.Y)
		u := w.undergrounds[p]
		if u == nil {
			return fmt.Errorf("underground state at %s without underground", p)
		}
		if !uv.Linked {
			continue
		}
		lp := posOf(uv.LinkX, uv.LinkY)
		if w.undergrounds[lp] == nil || w.classAt(lp) == w.classAt(p) {
			return fmt.Errorf("underground %s: bad partner %s", p, lp)
		}
		u.Linked = &lp
	}

	for _, bv := range s.Belts {
		p := posOf(bv.X, bv.Y)
		if w.belts[p] == nil {
			return fmt.Errorf("belt items at %s without belt", p)
		}
		items := make([]belt.Item, 0, len(bv.Items))
		for _, iv := range bv.Items {
			k, err := w.knownItem(iv.Item)
			if err != nil {
				return err
			}
			items = append(items, belt.Item{Kind: k, X: iv.X, Y: iv.Y, Seed: iv.Seed})
		}
		w.belts[p] = belt.Restore(items)
	}
	for _, lv := range s.LooseItems {
		k, err := w.knownItem(lv.Item)
		if err != nil {
			return err
		}
		p := posOf(lv.X, lv.Y)
		d := geom.Direction(lv.Dir)
		if !w.inBounds(p) || !d.Valid() {
			return fmt.Errorf("loose item at %s: out of bounds or bad dir", p)
		}
		w.loose = append(w.loose, &LooseItem{Kind: k, Pos: p, Dir: d, Progress: lv.Progress, Speed: lv.Speed})
	}
	return nil
}

func (w *World) overlayLedger(s snapshot.SaveV1) error {
	w.inventory = map[catalogs.ItemKind]int{}
	for name, n := range s.Inventory {
		k, err := w.knownItem(name)
		if err != nil {
			return err
		}
		if n != 0 {
			w.inventory[k] = n
		}
	}

	l := w.ledger
	l.Research = s.Stats.Research
	l.Stored = map[catalogs.ItemKind]int{}
	for name, n := range s.Stats.Stored {
		k, err := w.knownItem(name)
		if err != nil {
			return err
		}
		l.Stored[k] = n
	}
	l.Unlocked = map[catalogs.BuildingKind]bool{}
	for _, name := range s.Unlocked {
		k := catalogs.BuildingKind(name)
		if _, ok := w.cats.Building(k); !ok {
			return fmt.Errorf("unknown building %q", name)
		}
		l.Unlocked[k] = true
	}
	l.Achieved = map[string]bool{}
	for _, id := range s.Stats.Achieved {
		if _, ok := w.cats.Achievements.ByID[id]; !ok {
			return fmt.Errorf("unknown achievement %q", id)
		}
		l.Achieved[id] = true
	}
	w.plates.Events = importRateEvents(s.Stats.PlateEvents)
	w.science.Events = importRateEvents(s.Stats.ScienceEvents)
	return nil
}

func importRateEvents(in []snapshot.RateEventV1) []rates.Event {
	if len(in) == 0 {
		return nil
	}
	out := make([]rates.Event, len(in))
	for i, e := range in {
		out[i] = rates.Event{At: e.At, Count: e.Count}
	}
	return out
}

// adopt takes over the simulation state of a restored world, keeping this
// world's channels, sessions and sinks.
func (w *World) adopt(nw *World) {
	w.seed = nw.seed
	w.tick.Store(nw.tick.Load())
	w.clock = nw.clock
	w.terrain = nw.terrain
	w.tiles = nw.tiles
	w.congestion = nw.congestion
	w.buildings = nw.buildings
	w.belts = nw.belts
	w.miners = nw.miners
	w.processors = nw.processors
	w.storages = nw.storages
	w.splitters = nw.splitters
	w.routers = nw.routers
	w.undergrounds = nw.undergrounds
	w.coalGens = nw.coalGens
	w.loose = nw.loose
	w.inventory = nw.inventory
	w.ledger = nw.ledger
	w.plates = nw.plates
	w.science = nw.science
	w.power = nw.power
	w.events = w.events[:0]
}
