package worldtest

import (
	"testing"

	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

func newFlatHarness(t *testing.T) *Harness {
	t.Helper()
	h := NewHarness(t, tuning.Defaults(), "alice")
	h.Flatten()
	h.W.GrantResearch(1000)
	for _, it := range []catalogs.ItemKind{catalogs.ItemPlate, catalogs.ItemGear, catalogs.ItemCircuit, catalogs.ItemCopperPlate} {
		h.W.AddToInventory(it, 100000)
	}
	return h
}

func TestCommands_AckCodes(t *testing.T) {
	h := newFlatHarness(t)
	o := h.Origin()
	x, y := o.X+4, o.Y+4

	cases := []struct {
		name string
		cmd  protocol.CmdMsg
		code string
	}{
		{"place", protocol.CmdMsg{Op: protocol.OpPlace, X: x, Y: y, Kind: "CONVEYOR", Dir: "E"}, ""},
		{"same again", protocol.CmdMsg{Op: protocol.OpPlace, X: x, Y: y, Kind: "CONVEYOR", Dir: "E"}, protocol.ErrConflict},
		{"turn in place", protocol.CmdMsg{Op: protocol.OpPlace, X: x, Y: y, Kind: "CONVEYOR", Dir: "S"}, ""},
		{"rotate", protocol.CmdMsg{Op: protocol.OpRotate, X: x, Y: y}, ""},
		{"off map", protocol.CmdMsg{Op: protocol.OpPlace, X: -1, Y: 0, Kind: "CONVEYOR"}, protocol.ErrInvalidTarget},
		{"unknown kind", protocol.CmdMsg{Op: protocol.OpPlace, X: x + 1, Y: y, Kind: "TELEPORTER"}, protocol.ErrBadRequest},
		{"bad dir", protocol.CmdMsg{Op: protocol.OpPlace, X: x + 1, Y: y, Kind: "CONVEYOR", Dir: "UP"}, protocol.ErrBadRequest},
		{"remove empty", protocol.CmdMsg{Op: protocol.OpRemove, X: x + 1, Y: y}, protocol.ErrInvalidTarget},
		{"unknown region", protocol.CmdMsg{Op: protocol.OpUnlockRegion, RegionID: 1 << 20}, protocol.ErrInvalidTarget},
		{"unknown op", protocol.CmdMsg{Op: "EXPLODE"}, protocol.ErrBadRequest},
		{"remove", protocol.CmdMsg{Op: protocol.OpRemove, X: x, Y: y}, ""},
	}
	for _, tc := range cases {
		ack := h.Do(tc.cmd)
		if ack.Code != tc.code || ack.Accepted != (tc.code == "") {
			t.Fatalf("%s: ack=%+v want code %q", tc.name, ack, tc.code)
		}
	}
	if got := h.W.Tile(geom.Pos{X: x, Y: y}); !got.Empty() {
		t.Fatalf("tile after remove = %+v", got)
	}
	// Acks reach the session's stream too.
	if n := h.AckFrames(h.DefaultSession); n != len(cases) {
		t.Fatalf("ack frames=%d want %d", n, len(cases))
	}
}

func TestCommands_RegionLockedUntilUnlocked(t *testing.T) {
	h := newFlatHarness(t)

	var target int
	var cell geom.Pos
	found := false
	for _, r := range h.W.Regions() {
		if !r.Unlocked {
			target, cell, found = r.ID, geom.Pos{X: r.Bounds.X + 1, Y: r.Bounds.Y + 1}, true
			break
		}
	}
	if !found {
		t.Fatalf("no locked region")
	}

	if ack := h.Place(cell.X, cell.Y, catalogs.KindConveyor, geom.East); ack.Code != protocol.ErrNoPermission {
		t.Fatalf("place in locked region: %+v", ack)
	}
	h.MustDo(protocol.CmdMsg{Op: protocol.OpUnlockRegion, RegionID: target})
	if ack := h.Do(protocol.CmdMsg{Op: protocol.OpUnlockRegion, RegionID: target}); ack.Code != protocol.ErrConflict {
		t.Fatalf("second unlock: %+v", ack)
	}
	if got := h.W.Terrain(cell); got.String() == "LOCKED" {
		t.Fatalf("terrain still locked after unlock")
	}
}

func TestObserver_IsReadOnlyButReceivesState(t *testing.T) {
	h := newFlatHarness(t)
	obs := h.Join("watcher", protocol.RoleObserver)
	o := h.Origin()

	ack := h.DoAs(obs, protocol.CmdMsg{Op: protocol.OpPlace, X: o.X + 2, Y: o.Y + 2, Kind: "CONVEYOR", Dir: "E"})
	if ack.Accepted || ack.Code != protocol.ErrNoPermission {
		t.Fatalf("observer place: %+v", ack)
	}
	h.MustPlace(o.X+2, o.Y+2, catalogs.KindConveyor, geom.East)
	h.StepFor(1)

	st := h.LastStateFor(obs)
	if st.Type != protocol.TypeState || st.Tick == 0 {
		t.Fatalf("observer state=%+v", st)
	}
	if len(st.Buildings) != 1 || st.Buildings[0].Kind != "CONVEYOR" || st.Buildings[0].Dir != "E" {
		t.Fatalf("observer buildings=%+v", st.Buildings)
	}

	h.Leave(obs)
	if ack := h.DoAs(obs, protocol.CmdMsg{Op: protocol.OpRotate, X: o.X + 2, Y: o.Y + 2}); !ack.Accepted {
		t.Fatalf("departed session is treated as a player: %+v", ack)
	}
}
