package world

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/routing"
)

// systemProcessors runs crafts at the current power ratio, then dumps at
// most one finished item per processor onto a free output edge.
func (w *World) systemProcessors(dt float64) {
	if len(w.processors) == 0 {
		return
	}
	sdt := dt * w.power.Ratio
	occupied := w.looseOccupied()
	for _, o := range sortedKeys(w.processors) {
		p := w.processors[o]
		if p.Tick(w.cats, sdt) {
			w.event("CRAFT", string(p.Kind)+" "+p.ActiveID)
		}
		if len(p.Output) == 0 {
			continue
		}
		edges := w.outputEdges(o, w.sizeOf(p.Kind))
		_, next, ok := routing.RoundRobin(len(edges), p.DumpCursor, func(i int) bool {
			e := edges[i]
			if occupied[e.Pos] || !w.receptive(e.Pos) {
				return false
			}
			it, ok := p.PopOutput()
			if !ok {
				return false
			}
			if !w.emit(e.Pos, it) {
				p.UnpopOutput(it)
				return false
			}
			if w.classAt(e.Pos) != catalogs.ClassBelt {
				occupied[e.Pos] = true
			}
			return true
		})
		if ok {
			p.DumpCursor = next
		}
	}
}

// emit drops an item produced next to cell p: belts take it at their
// entrance, anything else gets a loose item.
func (w *World) emit(p geom.Pos, kind catalogs.ItemKind) bool {
	if w.classAt(p) == catalogs.ClassBelt {
		tr := w.belts[p]
		if tr == nil || !tr.CanAccept(false) {
			return false
		}
		tr.Add(kind, 0, 0, w.itemSeed(p))
		return true
	}
	w.spawnLoose(kind, p)
	return true
}
