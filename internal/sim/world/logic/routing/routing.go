// Package routing holds the junction rules shared by the conveyor pass,
// loose items, processors and miners: splitter outputs, router
// input/output classification and input-edge detection. World state is
// read through Env so the rules can be tested on a plain map.
package routing

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

// Cell is what the rules need to know about an occupied tile.
type Cell struct {
	Class  catalogs.Class
	Facing geom.Direction
}

type Env interface {
	// CellAt returns the building on p (resolved to its kind for
	// multi-block cells). ok is false for empty or out-of-bounds cells.
	CellAt(p geom.Pos) (c Cell, ok bool)
}

// SplitterOutputs returns every side a splitter facing f can push out of:
// straight ahead, then counter-clockwise, then clockwise. Loose items and
// input classification use this set.
func SplitterOutputs(f geom.Direction) []geom.Direction {
	if f == geom.None {
		f = geom.East
	}
	return []geom.Direction{f, f.Rotate(-1), f.Rotate(1)}
}

// SplitterLaterals returns the two sides a belt-fed splitter forwards to,
// counter-clockwise first.
func SplitterLaterals(f geom.Direction) []geom.Direction {
	if f == geom.None {
		f = geom.East
	}
	return []geom.Direction{f.Rotate(-1), f.Rotate(1)}
}

func feedsToward(env Env, c Cell, toward geom.Direction) bool {
	switch c.Class {
	case catalogs.ClassBelt:
		return c.Facing == toward
	case catalogs.ClassSplitter:
		for _, d := range SplitterOutputs(c.Facing) {
			if d == toward {
				return true
			}
		}
	}
	return false
}

// IsRouterInput reports whether the neighbour of router in direction dir
// pushes items into the router.
func IsRouterInput(env Env, router geom.Pos, dir geom.Direction) bool {
	c, ok := env.CellAt(router.Step(dir))
	if !ok {
		return false
	}
	back := dir.Opposite()
	switch c.Class {
	case catalogs.ClassBelt, catalogs.ClassSplitter:
		return feedsToward(env, c, back)
	case catalogs.ClassMiner, catalogs.ClassProcessor:
		return c.Facing == back
	}
	return false
}

// RouterOutputs classifies the four sides of router afresh; every side that
// is not an input is an output, in clockwise order from North.
func RouterOutputs(env Env, router geom.Pos) []geom.Direction {
	out := make([]geom.Direction, 0, 4)
	for _, d := range geom.Cardinals {
		if !IsRouterInput(env, router, d) {
			out = append(out, d)
		}
	}
	return out
}

// IsInputEdge reports whether the cell at edge feeds a multi-block building
// lying in direction inward: a belt facing in, a splitter with an output
// pointing in, any router and any miner.
func IsInputEdge(env Env, edge geom.Pos, inward geom.Direction) bool {
	c, ok := env.CellAt(edge)
	if !ok {
		return false
	}
	switch c.Class {
	case catalogs.ClassBelt, catalogs.ClassSplitter:
		return feedsToward(env, c, inward)
	case catalogs.ClassRouter, catalogs.ClassMiner:
		return true
	}
	return false
}

// RoundRobin offers the n slots to try starting at cursor and wrapping. It
// returns the index accepted and the cursor to store, one past it. When no
// slot accepts, the cursor is returned unchanged.
func RoundRobin(n, cursor int, try func(i int) bool) (used, next int, ok bool) {
	if n <= 0 {
		return -1, cursor, false
	}
	start := ((cursor % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if try(idx) {
			return idx, (idx + 1) % n, true
		}
	}
	return -1, cursor, false
}
