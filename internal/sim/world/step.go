package world

import (
	"crypto/sha256"
	"encoding/hex"

	dc "github.com/loguhan/FactoryGame/internal/sim/world/io/digestcodec"
)

// Step advances the simulation by dt seconds. Systems run in a fixed order;
// see the package tests for the properties that order preserves.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	w.plates.Trim(w.clock)
	w.science.Trim(w.clock)

	w.systemPower()
	w.systemCoalGenerators(dt)
	w.decayCongestion(dt)

	w.systemConveyors(dt)
	w.systemLooseItems(dt)

	w.absorbIntoProcessors()
	w.systemProcessors(dt)
	w.systemMiners(dt)

	w.absorbIntoStorages()
	w.absorbIntoCoalGenerators()

	w.clock += dt
	w.tick.Add(1)
}

// stateDigest hashes everything that affects future ticks, in a fixed order.
func (w *World) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	dc.WriteU64(h, &tmp, w.tick.Load())
	dc.WriteF64(h, &tmp, w.clock)

	for _, id := range w.terrain.UnlockedIDs() {
		d := w.terrain.Region(id).Digest()
		h.Write(d[:])
	}

	for _, p := range sortedKeys(w.buildings) {
		t := w.tileAt(p)
		dc.WriteI64(h, &tmp, int64(p.X))
		dc.WriteI64(h, &tmp, int64(p.Y))
		h.Write([]byte(t.Kind))
		h.Write([]byte{byte(t.Dir)})
	}
	for _, p := range sortedKeys(w.belts) {
		for _, it := range w.belts[p].Items {
			h.Write([]byte(it.Kind))
			dc.WriteF64(h, &tmp, it.X)
			dc.WriteF64(h, &tmp, it.Y)
		}
	}
	for _, p := range sortedKeys(w.miners) {
		dc.WriteF64(h, &tmp, w.miners[p].Timer)
	}
	for _, p := range sortedKeys(w.processors) {
		s := w.processors[p]
		h.Write([]byte(s.RecipeID))
		h.Write([]byte(s.ActiveID))
		for _, k := range s.InputKinds() {
			h.Write([]byte(k))
			dc.WriteI64(h, &tmp, int64(s.Input[k]))
		}
		for _, it := range s.Output {
			h.Write([]byte(it))
		}
		dc.WriteF64(h, &tmp, s.CraftTimer)
		dc.WriteBool(h, s.Crafting)
		dc.WriteF64(h, &tmp, s.BurnTime)
		dc.WriteI64(h, &tmp, int64(s.DumpCursor))
	}
	for _, p := range sortedKeys(w.storages) {
		dc.WriteI64(h, &tmp, int64(w.storages[p].Count))
	}
	for _, p := range sortedKeys(w.splitters) {
		dc.WriteI64(h, &tmp, int64(w.splitters[p].Index))
	}
	for _, p := range sortedKeys(w.routers) {
		dc.WriteI64(h, &tmp, int64(w.routers[p].Index))
	}
	for _, p := range sortedKeys(w.coalGens) {
		g := w.coalGens[p]
		dc.WriteF64(h, &tmp, g.FuelTimer)
		dc.WriteBool(h, g.HasFuel)
	}
	for _, it := range w.loose {
		h.Write([]byte(it.Kind))
		dc.WriteI64(h, &tmp, int64(it.Pos.X))
		dc.WriteI64(h, &tmp, int64(it.Pos.Y))
		h.Write([]byte{byte(it.Dir)})
		dc.WriteF64(h, &tmp, it.Progress)
	}

	dc.WriteSortedNonZeroIntMap(h, &tmp, w.inventory)
	dc.WriteSortedNonZeroIntMap(h, &tmp, w.ledger.Stored)
	dc.WriteI64(h, &tmp, int64(w.ledger.Research))

	return hex.EncodeToString(h.Sum(nil))
}
