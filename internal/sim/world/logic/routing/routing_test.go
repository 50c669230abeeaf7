package routing

import (
	"testing"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

type mapEnv struct {
	cells map[geom.Pos]Cell
}

func (m mapEnv) CellAt(p geom.Pos) (Cell, bool) {
	c, ok := m.cells[p]
	return c, ok
}

func TestSplitterOutputs(t *testing.T) {
	cases := []struct {
		f    geom.Direction
		want []geom.Direction
	}{
		{geom.North, []geom.Direction{geom.North, geom.West, geom.East}},
		{geom.East, []geom.Direction{geom.East, geom.North, geom.South}},
		{geom.South, []geom.Direction{geom.South, geom.East, geom.West}},
		{geom.West, []geom.Direction{geom.West, geom.South, geom.North}},
	}
	for _, tc := range cases {
		got := SplitterOutputs(tc.f)
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("SplitterOutputs(%v)=%v want %v", tc.f, got, tc.want)
			}
		}
	}
	lat := SplitterLaterals(geom.East)
	if len(lat) != 2 || lat[0] != geom.North || lat[1] != geom.South {
		t.Fatalf("lateral outputs=%v", lat)
	}
}

func TestRouterOutputs_ReclassifiedEachCall(t *testing.T) {
	r := geom.Pos{X: 5, Y: 5}
	env := mapEnv{cells: map[geom.Pos]Cell{
		{X: 4, Y: 5}: {Class: catalogs.ClassBelt, Facing: geom.East}, // feeds in from the west
		{X: 6, Y: 5}: {Class: catalogs.ClassBelt, Facing: geom.East}, // carries away to the east
	}}
	got := RouterOutputs(env, r)
	want := []geom.Direction{geom.North, geom.East, geom.South}
	if len(got) != len(want) {
		t.Fatalf("outputs=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("outputs=%v want %v", got, want)
		}
	}

	// Turning the west belt around makes West an output on the next query.
	env.cells[geom.Pos{X: 4, Y: 5}] = Cell{Class: catalogs.ClassBelt, Facing: geom.West}
	if got := RouterOutputs(env, r); len(got) != 4 {
		t.Fatalf("after rotation outputs=%v want all four", got)
	}

	// A splitter to the north whose counter-clockwise output points south feeds the router.
	env.cells[geom.Pos{X: 5, Y: 4}] = Cell{Class: catalogs.ClassSplitter, Facing: geom.West}
	if !IsRouterInput(env, r, geom.North) {
		t.Fatalf("splitter output into router should be an input")
	}
	// Straight-ahead output counts too.
	env.cells[geom.Pos{X: 5, Y: 4}] = Cell{Class: catalogs.ClassSplitter, Facing: geom.South}
	if !IsRouterInput(env, r, geom.North) {
		t.Fatalf("splitter facing the router should be an input")
	}
}

func TestIsInputEdge(t *testing.T) {
	env := mapEnv{cells: map[geom.Pos]Cell{
		{X: 0, Y: 0}: {Class: catalogs.ClassBelt, Facing: geom.South},
		{X: 1, Y: 0}: {Class: catalogs.ClassBelt, Facing: geom.North},
		{X: 2, Y: 0}: {Class: catalogs.ClassRouter},
		{X: 3, Y: 0}: {Class: catalogs.ClassMiner},
		{X: 4, Y: 0}: {Class: catalogs.ClassStorage},
		{X: 5, Y: 0}: {Class: catalogs.ClassSplitter, Facing: geom.East},
	}}
	cases := []struct {
		p    geom.Pos
		want bool
	}{
		{geom.Pos{X: 0, Y: 0}, true},
		{geom.Pos{X: 1, Y: 0}, false},
		{geom.Pos{X: 2, Y: 0}, true},
		{geom.Pos{X: 3, Y: 0}, true},
		{geom.Pos{X: 4, Y: 0}, false},
		{geom.Pos{X: 5, Y: 0}, true},
		{geom.Pos{X: 9, Y: 9}, false},
	}
	for _, tc := range cases {
		if got := IsInputEdge(env, tc.p, geom.South); got != tc.want {
			t.Fatalf("IsInputEdge(%v)=%v want %v", tc.p, got, tc.want)
		}
	}
}

func TestRoundRobin(t *testing.T) {
	accept := map[int]bool{0: true, 2: true}
	used, next, ok := RoundRobin(3, 1, func(i int) bool { return accept[i] })
	if !ok || used != 2 || next != 0 {
		t.Fatalf("got used=%d next=%d ok=%v", used, next, ok)
	}
	used, next, ok = RoundRobin(3, next, func(i int) bool { return accept[i] })
	if !ok || used != 0 || next != 1 {
		t.Fatalf("got used=%d next=%d ok=%v", used, next, ok)
	}
	_, next, ok = RoundRobin(3, 7, func(int) bool { return false })
	if ok || next != 7 {
		t.Fatalf("rejecting all should keep cursor, got next=%d ok=%v", next, ok)
	}
	if _, _, ok := RoundRobin(0, 0, func(int) bool { return true }); ok {
		t.Fatalf("empty set accepted")
	}
}
