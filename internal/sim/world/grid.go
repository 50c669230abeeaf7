package world

import (
	"sort"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/footprint"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/routing"
)

func (w *World) inBounds(p geom.Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.tun.MapWidth && p.Y < w.tun.MapHeight
}

func (w *World) idx(p geom.Pos) int { return p.Y*w.tun.MapWidth + p.X }

func (w *World) tileAt(p geom.Pos) Tile {
	if !w.inBounds(p) {
		return Tile{}
	}
	return w.tiles[w.idx(p)]
}

func (w *World) setTile(p geom.Pos, t Tile) {
	w.tiles[w.idx(p)] = t
}

// origin resolves any cell of a building to its origin cell.
func (w *World) origin(p geom.Pos) (geom.Pos, Tile, bool) {
	t := w.tileAt(p)
	if t.Empty() {
		return p, t, false
	}
	if t.Parent != nil {
		o := *t.Parent
		return o, w.tileAt(o), true
	}
	return p, t, true
}

func (w *World) classAt(p geom.Pos) catalogs.Class {
	t := w.tileAt(p)
	if t.Empty() {
		return ""
	}
	return w.cats.ClassOf(t.Kind)
}

func (w *World) sizeOf(kind catalogs.BuildingKind) int { return w.cats.Size(kind) }

func (w *World) footprintOf(origin geom.Pos) []geom.Pos {
	return footprint.Cells(origin, w.sizeOf(w.tileAt(origin).Kind))
}

// routingEnv exposes the grid to the junction rules.
type routingEnv struct{ w *World }

func (e routingEnv) CellAt(p geom.Pos) (routing.Cell, bool) {
	t := e.w.tileAt(p)
	if t.Empty() {
		return routing.Cell{}, false
	}
	return routing.Cell{Class: e.w.cats.ClassOf(t.Kind), Facing: t.Dir}, true
}

func (w *World) env() routingEnv { return routingEnv{w: w} }

func lessPos(a, b geom.Pos) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// sortedKeys returns map keys in row-major order so every pass visits
// buildings deterministically.
func sortedKeys[T any](m map[geom.Pos]T) []geom.Pos {
	out := make([]geom.Pos, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return lessPos(out[i], out[j]) })
	return out
}

// receptive reports whether a cell can take an item dropped next to it.
func (w *World) receptive(p geom.Pos) bool {
	switch w.classAt(p) {
	case catalogs.ClassBelt, catalogs.ClassSplitter, catalogs.ClassMerger, catalogs.ClassRouter,
		catalogs.ClassStorage, catalogs.ClassProcessor, catalogs.ClassCoalGenerator:
		return true
	}
	return false
}

// outputEdges lists the external edges of a building that are in bounds and
// not fed by a neighbour.
func (w *World) outputEdges(origin geom.Pos, size int) []footprint.Edge {
	env := w.env()
	edges := footprint.ExternalEdges(origin, size)
	out := edges[:0]
	for _, e := range edges {
		if !w.inBounds(e.Pos) || routing.IsInputEdge(env, e.Pos, e.Inward) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (w *World) bumpCongestion(p geom.Pos) {
	if !w.inBounds(p) {
		return
	}
	i := w.idx(p)
	c := w.congestion[i] + w.tun.Congestion.BlockedIncrement
	if c > 1 {
		c = 1
	}
	w.congestion[i] = c
}
