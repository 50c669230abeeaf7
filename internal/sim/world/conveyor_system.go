package world

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/belt"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/mathx"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/routing"
)

// systemConveyors advances every belt track and offloads items that reach
// the exit into the cell ahead.
func (w *World) systemConveyors(dt float64) {
	for _, p := range sortedKeys(w.belts) {
		tr := w.belts[p]
		t := w.tileAt(p)
		def, ok := w.cats.Building(t.Kind)
		if tr == nil || !ok {
			continue
		}
		_, blocked := tr.Advance(def.Speed, dt, func(kind catalogs.ItemKind) bool {
			return w.deliver(p, p.Step(t.Dir), t.Dir, kind, true)
		})
		if blocked {
			w.bumpCongestion(p)
		}
	}
}

// deliver hands one item travelling in direction travel from cell from to
// cell to. Junctions forward it on in the same call when allowJunction is
// set; they never chain into another junction.
func (w *World) deliver(from, to geom.Pos, travel geom.Direction, kind catalogs.ItemKind, allowJunction bool) bool {
	if !w.inBounds(to) {
		return false
	}
	origin, t, ok := w.origin(to)
	if !ok {
		return false
	}
	switch w.cats.ClassOf(t.Kind) {
	case catalogs.ClassBelt:
		return w.insertIntoBelt(from, to, travel, kind)
	case catalogs.ClassProcessor:
		p := w.processors[origin]
		return p != nil && p.Offer(w.cats, kind)
	case catalogs.ClassStorage:
		return w.deliverToStorage(origin, kind)
	case catalogs.ClassCoalGenerator:
		return w.refuel(origin, kind)
	case catalogs.ClassRouter, catalogs.ClassSplitter, catalogs.ClassMerger, catalogs.ClassUndergroundEntry:
		if !allowJunction {
			return false
		}
		return w.dispatchJunction(origin, kind)
	}
	return false
}

// insertIntoBelt places an item on the track at to. A belt pointing back at
// the source never accepts.
func (w *World) insertIntoBelt(from, to geom.Pos, travel geom.Direction, kind catalogs.ItemKind) bool {
	t := w.tileAt(to)
	if t.Dir == travel.Opposite() {
		return false
	}
	tr := w.belts[to]
	if tr == nil {
		return false
	}
	rel := geom.Relative(from, to, t.Dir)
	side := rel == 1 || rel == 3
	if !tr.CanAccept(side) {
		return false
	}
	x, y := 0.0, 0.0
	if side {
		y = belt.SideLongitudinal
		x = belt.SideLateral
		if rel == 1 {
			x = -belt.SideLateral
		}
	}
	tr.Add(kind, x, y, w.itemSeed(to))
	return true
}

func (w *World) itemSeed(p geom.Pos) int16 {
	return int16(mathx.Hash2(int64(w.tick.Load()), p.X, p.Y))
}

// dispatchJunction forwards an item that arrived at a junction to a
// terminal receiver next to it.
func (w *World) dispatchJunction(pos geom.Pos, kind catalogs.ItemKind) bool {
	t := w.tileAt(pos)
	switch w.cats.ClassOf(t.Kind) {
	case catalogs.ClassRouter:
		cur := w.routers[pos]
		if cur == nil {
			return false
		}
		outs := routing.RouterOutputs(w.env(), pos)
		return w.roundRobin(pos, outs, cur, kind)
	case catalogs.ClassSplitter:
		cur := w.splitters[pos]
		if cur == nil {
			return false
		}
		outs := routing.SplitterLaterals(t.Dir)
		return w.roundRobin(pos, outs, cur, kind)
	case catalogs.ClassMerger:
		return w.deliver(pos, pos.Step(t.Dir), t.Dir, kind, false)
	case catalogs.ClassUndergroundEntry:
		ug := w.undergrounds[pos]
		if ug == nil || ug.Linked == nil {
			return false
		}
		exit := *ug.Linked
		d := w.tileAt(exit).Dir
		return w.deliver(exit, exit.Step(d), d, kind, false)
	}
	return false
}

func (w *World) roundRobin(pos geom.Pos, outs []geom.Direction, cur *Cursor, kind catalogs.ItemKind) bool {
	_, next, ok := routing.RoundRobin(len(outs), cur.Index, func(i int) bool {
		d := outs[i]
		return w.deliver(pos, pos.Step(d), d, kind, false)
	})
	if ok {
		cur.Index = next
	}
	return ok
}

// refuel feeds a coal generator when it is out of fuel or running low.
func (w *World) refuel(origin geom.Pos, kind catalogs.ItemKind) bool {
	g := w.coalGens[origin]
	def, ok := w.cats.Building(w.tileAt(origin).Kind)
	if g == nil || !ok || kind != def.FuelItem {
		return false
	}
	if g.HasFuel && g.FuelTimer >= def.RefuelBelow {
		return false
	}
	g.HasFuel = true
	g.FuelTimer += def.FuelSeconds
	return true
}
