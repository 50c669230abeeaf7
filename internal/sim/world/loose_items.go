package world

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/routing"
)

func (w *World) spawnLoose(kind catalogs.ItemKind, p geom.Pos) {
	w.loose = append(w.loose, &LooseItem{Kind: kind, Pos: p})
}

func (w *World) looseOccupied() map[geom.Pos]bool {
	occ := make(map[geom.Pos]bool, len(w.loose))
	for _, it := range w.loose {
		occ[it.Pos] = true
	}
	return occ
}

// dropLoose removes the items marked in gone, keeping order.
func (w *World) dropLoose(gone []bool) {
	kept := w.loose[:0]
	for i, it := range w.loose {
		if !gone[i] {
			kept = append(kept, it)
		}
	}
	for i := len(kept); i < len(w.loose); i++ {
		w.loose[i] = nil
	}
	w.loose = kept
}

// systemLooseItems moves loose items one cell at a time along junction
// routing. Items resting on a belt join its track once it has room; items
// on an underground entry are sent through it.
func (w *World) systemLooseItems(dt float64) {
	if len(w.loose) == 0 {
		return
	}
	occupied := w.looseOccupied()
	reserved := map[geom.Pos]bool{}
	gone := make([]bool, len(w.loose))
	dropped := false

	for i, it := range w.loose {
		if it.Dir != geom.None {
			it.Progress += it.Speed * dt
			if it.Progress >= 1 {
				delete(occupied, it.Pos)
				it.Pos = it.Pos.Step(it.Dir)
				occupied[it.Pos] = true
				it.Progress = 0
				it.Dir = geom.None
			}
			continue
		}

		switch w.classAt(it.Pos) {
		case catalogs.ClassBelt:
			if tr := w.belts[it.Pos]; tr != nil && tr.CanAccept(false) {
				tr.Add(it.Kind, 0, 0, w.itemSeed(it.Pos))
				gone[i], dropped = true, true
				delete(occupied, it.Pos)
			} else {
				w.bumpCongestion(it.Pos)
			}
			continue
		case catalogs.ClassUndergroundEntry:
			if w.dispatchJunction(it.Pos, it.Kind) {
				gone[i], dropped = true, true
				delete(occupied, it.Pos)
			} else {
				w.bumpCongestion(it.Pos)
			}
			continue
		}

		dir, next, ok := w.nextMove(it.Pos, occupied, reserved)
		if !ok {
			w.bumpCongestion(it.Pos)
			continue
		}
		it.Dir = dir
		it.Progress = 0
		it.Speed = w.tun.LooseItemSpeed
		reserved[next] = true
	}
	if dropped {
		w.dropLoose(gone)
	}
}

// nextMove picks where a resting item on a junction goes next.
func (w *World) nextMove(p geom.Pos, occupied, reserved map[geom.Pos]bool) (geom.Direction, geom.Pos, bool) {
	t := w.tileAt(p)
	try := func(d geom.Direction) (geom.Pos, bool) {
		n := p.Step(d)
		if !w.inBounds(n) || occupied[n] || reserved[n] {
			return n, false
		}
		return n, w.canEnter(n, d)
	}

	var outs []geom.Direction
	var cur *Cursor
	switch w.cats.ClassOf(t.Kind) {
	case catalogs.ClassMerger:
		if n, ok := try(t.Dir); ok {
			return t.Dir, n, true
		}
		return geom.None, p, false
	case catalogs.ClassSplitter:
		outs = routing.SplitterOutputs(t.Dir)
		cur = w.splitters[p]
	case catalogs.ClassRouter:
		outs = routing.RouterOutputs(w.env(), p)
		cur = w.routers[p]
	default:
		return geom.None, p, false
	}
	if cur == nil {
		return geom.None, p, false
	}
	var next geom.Pos
	used, idx, ok := routing.RoundRobin(len(outs), cur.Index, func(i int) bool {
		n, ok := try(outs[i])
		if ok {
			next = n
		}
		return ok
	})
	if !ok {
		return geom.None, p, false
	}
	cur.Index = idx
	return outs[used], next, true
}

// canEnter reports whether a loose item travelling in direction d may move
// onto cell n.
func (w *World) canEnter(n geom.Pos, d geom.Direction) bool {
	t := w.tileAt(n)
	switch w.cats.ClassOf(t.Kind) {
	case catalogs.ClassBelt:
		return t.Dir != d.Opposite()
	case catalogs.ClassSplitter:
		return d == t.Dir
	case catalogs.ClassMerger:
		return d != t.Dir.Opposite()
	case catalogs.ClassRouter, catalogs.ClassStorage, catalogs.ClassProcessor,
		catalogs.ClassCoalGenerator, catalogs.ClassUndergroundEntry:
		return true
	}
	return false
}

// absorbIntoProcessors hands loose items to the processor they sit in or
// are heading into.
func (w *World) absorbIntoProcessors() {
	if len(w.loose) == 0 || len(w.processors) == 0 {
		return
	}
	gone := make([]bool, len(w.loose))
	dropped := false
	for i, it := range w.loose {
		target, ok := w.processorTarget(it)
		if !ok {
			continue
		}
		if p := w.processors[target]; p != nil && p.Offer(w.cats, it.Kind) {
			gone[i], dropped = true, true
		}
	}
	if dropped {
		w.dropLoose(gone)
	}
}

func (w *World) processorTarget(it *LooseItem) (geom.Pos, bool) {
	if w.classAt(it.Pos) == catalogs.ClassProcessor {
		o, _, _ := w.origin(it.Pos)
		return o, true
	}
	d := it.Dir
	if d == geom.None {
		t := w.tileAt(it.Pos)
		if w.cats.ClassOf(t.Kind) != catalogs.ClassBelt {
			return geom.Pos{}, false
		}
		d = t.Dir
	}
	n := it.Pos.Step(d)
	if w.classAt(n) != catalogs.ClassProcessor {
		return geom.Pos{}, false
	}
	o, _, _ := w.origin(n)
	return o, true
}

func (w *World) absorbIntoStorages() {
	if len(w.loose) == 0 || len(w.storages) == 0 {
		return
	}
	gone := make([]bool, len(w.loose))
	dropped := false
	for i, it := range w.loose {
		if it.Dir != geom.None || w.classAt(it.Pos) != catalogs.ClassStorage {
			continue
		}
		o, _, _ := w.origin(it.Pos)
		if w.deliverToStorage(o, it.Kind) {
			gone[i], dropped = true, true
		}
	}
	if dropped {
		w.dropLoose(gone)
	}
}

func (w *World) absorbIntoCoalGenerators() {
	if len(w.loose) == 0 || len(w.coalGens) == 0 {
		return
	}
	gone := make([]bool, len(w.loose))
	dropped := false
	for i, it := range w.loose {
		if it.Dir != geom.None || w.classAt(it.Pos) != catalogs.ClassCoalGenerator {
			continue
		}
		o, _, _ := w.origin(it.Pos)
		if w.refuel(o, it.Kind) {
			gone[i], dropped = true, true
		}
	}
	if dropped {
		w.dropLoose(gone)
	}
}
