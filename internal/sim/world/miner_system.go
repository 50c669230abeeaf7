package world

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/footprint"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

// systemMiners counts miner timers down at the power ratio and drops one
// mined item on a random free output edge when a timer runs out.
func (w *World) systemMiners(dt float64) {
	if len(w.miners) == 0 {
		return
	}
	mt := w.tun.Miners
	occupied := w.looseOccupied()
	for _, o := range sortedKeys(w.miners) {
		m := w.miners[o]
		kind := w.tileAt(o).Kind
		def, ok := w.cats.Building(kind)
		if !ok {
			continue
		}
		speed := def.Speed
		if speed <= 0 {
			speed = 1
		}
		m.Timer -= dt * w.power.Ratio * speed
		if m.Timer > 0 {
			continue
		}
		item, ok := w.minedItem(o, def.Size)
		if !ok {
			m.Timer = mt.NoOreRetrySeconds
			continue
		}

		edges := w.outputEdges(o, def.Size)
		w.rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
		m.Timer = mt.BlockedRetrySeconds
		for _, e := range edges {
			if occupied[e.Pos] || !w.receptive(e.Pos) {
				continue
			}
			if w.emit(e.Pos, item) {
				if w.classAt(e.Pos) != catalogs.ClassBelt {
					occupied[e.Pos] = true
				}
				m.Timer = mt.IntervalSeconds
			}
			break
		}
	}
}

// minedItem returns the item for the first ore cell under the footprint.
func (w *World) minedItem(origin geom.Pos, size int) (catalogs.ItemKind, bool) {
	for _, c := range footprint.Cells(origin, size) {
		if !w.inBounds(c) {
			continue
		}
		ore := w.terrain.Ore(c.X, c.Y)
		if ore == catalogs.OreNone {
			continue
		}
		if it, ok := w.cats.MinedItem(ore); ok {
			return it, true
		}
	}
	return "", false
}
