package world

import (
	"sort"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/rates"
	"github.com/loguhan/FactoryGame/internal/sim/world/terrain/store"
)

// ExportSave captures everything needed to resume the world. The miner RNG
// is not part of it; a loaded world reseeds from its config.
func (w *World) ExportSave() snapshot.SaveV1 {
	s := snapshot.SaveV1{
		Header:      snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: w.tick.Load()},
		Seed:        w.seed,
		Width:       w.tun.MapWidth,
		Height:      w.tun.MapHeight,
		RegionSize:  w.tun.RegionSize,
		Clock:       w.clock,
		ItemsDigest: w.cats.Items.PaletteDigest,
		Regions:     store.ExportRegions(w.terrain),
		Inventory:   map[string]int{},
	}

	for y := 0; y < w.tun.MapHeight; y++ {
		for x := 0; x < w.tun.MapWidth; x++ {
			t := w.tiles[y*w.tun.MapWidth+x]
			if t.Empty() {
				continue
			}
			tv := snapshot.TileV1{X: x, Y: y, Kind: string(t.Kind), Dir: uint8(t.Dir)}
			if t.Parent != nil {
				tv.HasParent = true
				tv.ParentX, tv.ParentY = t.Parent.X, t.Parent.Y
			}
			s.Tiles = append(s.Tiles, tv)
		}
	}

	for _, p := range sortedKeys(w.miners) {
		s.Miners = append(s.Miners, snapshot.MinerV1{X: p.X, Y: p.Y, Timer: w.miners[p].Timer})
	}
	for _, p := range sortedKeys(w.processors) {
		st := w.processors[p]
		pv := snapshot.ProcessorV1{
			X:            p.X,
			Y:            p.Y,
			RecipeID:     st.RecipeID,
			ActiveID:     st.ActiveID,
			CraftTimer:   st.CraftTimer,
			Crafting:     st.Crafting,
			BurnTime:     st.BurnTime,
			RequiresFuel: st.RequiresFuel,
			DumpCursor:   st.DumpCursor,
		}
		for _, k := range st.InputKinds() {
			if pv.Input == nil {
				pv.Input = map[string]int{}
			}
			pv.Input[string(k)] = st.Input[k]
		}
		for _, it := range st.Output {
			pv.Output = append(pv.Output, string(it))
		}
		s.Processors = append(s.Processors, pv)
	}
	for _, p := range sortedKeys(w.storages) {
		s.Storages = append(s.Storages, snapshot.StorageV1{X: p.X, Y: p.Y, Count: w.storages[p].Count})
	}
	for _, p := range sortedKeys(w.splitters) {
		s.Splitters = append(s.Splitters, snapshot.CursorV1{X: p.X, Y: p.Y, Index: w.splitters[p].Index})
	}
	for _, p := range sortedKeys(w.routers) {
		s.Routers = append(s.Routers, snapshot.CursorV1{X: p.X, Y: p.Y, Index: w.routers[p].Index})
	}
	for _, p := range sortedKeys(w.coalGens) {
		g := w.coalGens[p]
		s.CoalGenerators = append(s.CoalGenerators, snapshot.CoalGeneratorV1{X: p.X, Y: p.Y, FuelTimer: g.FuelTimer, HasFuel: g.HasFuel})
	}
	for _, p := range sortedKeys(w.undergrounds) {
		u := w.undergrounds[p]
		uv := snapshot.UndergroundV1{X: p.X, Y: p.Y}
		if u.Linked != nil {
			uv.Linked = true
			uv.LinkX, uv.LinkY = u.Linked.X, u.Linked.Y
		}
		s.Undergrounds = append(s.Undergrounds, uv)
	}
	for _, p := range sortedKeys(w.belts) {
		tr := w.belts[p]
		if tr.Len() == 0 {
			continue
		}
		bv := snapshot.BeltV1{X: p.X, Y: p.Y, Items: make([]snapshot.BeltItemV1, 0, tr.Len())}
		for _, it := range tr.Items {
			bv.Items = append(bv.Items, snapshot.BeltItemV1{Item: string(it.Kind), X: it.X, Y: it.Y, Seed: it.Seed})
		}
		s.Belts = append(s.Belts, bv)
	}
	for _, it := range w.loose {
		s.LooseItems = append(s.LooseItems, snapshot.LooseItemV1{
			Item:     string(it.Kind),
			X:        it.Pos.X,
			Y:        it.Pos.Y,
			Dir:      uint8(it.Dir),
			Progress: it.Progress,
			Speed:    it.Speed,
		})
	}

	for _, k := range sortedItems(w.inventory) {
		if n := w.inventory[k]; n != 0 {
			s.Inventory[string(k)] = n
		}
	}
	for k, ok := range w.ledger.Unlocked {
		if ok {
			s.Unlocked = append(s.Unlocked, string(k))
		}
	}
	sort.Strings(s.Unlocked)

	s.Stats = snapshot.StatsV1{
		Stored:        map[string]int{},
		Research:      w.ledger.Research,
		Achieved:      w.ledger.AchievedIDs(),
		PlateEvents:   exportRateEvents(w.plates.Events),
		ScienceEvents: exportRateEvents(w.science.Events),
	}
	for k, n := range w.ledger.Stored {
		if n != 0 {
			s.Stats.Stored[string(k)] = n
		}
	}
	return s
}

func exportRateEvents(evs []rates.Event) []snapshot.RateEventV1 {
	if len(evs) == 0 {
		return nil
	}
	out := make([]snapshot.RateEventV1, len(evs))
	for i, e := range evs {
		out[i] = snapshot.RateEventV1{At: e.At, Count: e.Count}
	}
	return out
}

func posOf(x, y int) geom.Pos { return geom.Pos{X: x, Y: y} }
