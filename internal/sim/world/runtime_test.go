package world

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

type recordingTickLogger struct{ entries []TickLogEntry }

func (r *recordingTickLogger) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestRun_CommandsViewsSavesAndLoads(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	ack, err := w.Submit(ctx, "p1", protocol.CmdMsg{Type: protocol.TypeCmd, ID: "c1", Op: protocol.OpPlace, X: 120, Y: 120, Kind: "CONVEYOR", Dir: "E"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !ack.Accepted || ack.AckFor != "c1" || ack.Code != "" {
		t.Fatalf("ack=%+v", ack)
	}

	ack, err = w.Submit(ctx, "p1", protocol.CmdMsg{Type: protocol.TypeCmd, ID: "c2", Op: protocol.OpPlace, X: 120, Y: 120, Kind: "CONVEYOR", Dir: "E"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.Accepted || ack.Code != protocol.ErrConflict {
		t.Fatalf("duplicate place ack=%+v", ack)
	}

	ack, _ = w.Submit(ctx, "p1", protocol.CmdMsg{Type: protocol.TypeCmd, ID: "c3", Op: "EXPLODE"})
	if ack.Accepted || ack.Code != protocol.ErrBadRequest {
		t.Fatalf("unknown op ack=%+v", ack)
	}

	out := make(chan []byte, 8)
	resp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{SessionID: "o1", Name: "watcher", Role: protocol.RoleObserver, Out: out, Resp: resp}
	var joined JoinResponse
	select {
	case joined = <-resp:
	case <-ctx.Done():
		t.Fatalf("join timed out")
	}
	if joined.Welcome.Role != protocol.RoleObserver || joined.Welcome.WorldParams.Width != 256 || len(joined.Catalogs) != 4 {
		t.Fatalf("welcome=%+v catalogs=%d", joined.Welcome, len(joined.Catalogs))
	}
	ack, _ = w.Submit(ctx, "o1", protocol.CmdMsg{Type: protocol.TypeCmd, ID: "c4", Op: protocol.OpRemove, X: 120, Y: 120})
	if ack.Accepted || ack.Code != protocol.ErrNoPermission {
		t.Fatalf("observer command ack=%+v", ack)
	}
	select {
	case b := <-out:
		var base protocol.BaseMessage
		if err := json.Unmarshal(b, &base); err != nil {
			t.Fatalf("observer frame: %v", err)
		}
		if base.Type != protocol.TypeAck && base.Type != protocol.TypeState {
			t.Fatalf("unexpected frame type %q", base.Type)
		}
	case <-ctx.Done():
		t.Fatalf("observer got nothing")
	}

	var kind catalogs.BuildingKind
	if err := w.View(ctx, func(w *World) { kind = w.Tile(geom.Pos{X: 120, Y: 120}).Kind }); err != nil {
		t.Fatalf("view: %v", err)
	}
	if kind != catalogs.KindConveyor {
		t.Fatalf("view saw %q", kind)
	}

	snap, err := w.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(snap.Tiles) != 1 {
		t.Fatalf("save tiles=%d", len(snap.Tiles))
	}
	if _, err := w.Submit(ctx, "p1", protocol.CmdMsg{Type: protocol.TypeCmd, ID: "c5", Op: protocol.OpRemove, X: 120, Y: 120}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	bad := snap
	bad.Width = 1
	if err := w.Load(ctx, bad); !errors.Is(err, snapshot.ErrInvalidSave) {
		t.Fatalf("bad load err=%v", err)
	}
	if err := w.Load(ctx, snap); err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = w.View(ctx, func(w *World) { kind = w.Tile(geom.Pos{X: 120, Y: 120}).Kind })
	if kind != catalogs.KindConveyor {
		t.Fatalf("load did not restore the belt, saw %q", kind)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v", err)
	}
	if err := w.View(context.Background(), func(*World) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("view after stop err=%v", err)
	}
}

func TestView_CancelledRequestNeverRuns(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	ran := false
	if err := w.View(ctx, func(*World) { ran = true }); !errors.Is(err, context.Canceled) {
		t.Fatalf("View err=%v want context.Canceled", err)
	}
	// The loop picks the request up late.
	req := <-w.views
	w.serveView(req)
	if ran {
		t.Fatalf("view ran after its caller gave up")
	}
	select {
	case <-req.done:
	default:
		t.Fatalf("served request not marked done")
	}
}

func TestStepOnce_LogsCommandsAndIsDeterministic(t *testing.T) {
	cmds := []CommandEnvelope{
		{SessionID: "p1", Cmd: protocol.CmdMsg{ID: "a", Op: protocol.OpPlace, X: 110, Y: 110, Kind: "CONVEYOR", Dir: "E"}},
		{SessionID: "p1", Cmd: protocol.CmdMsg{ID: "b", Op: protocol.OpPlace, X: -5, Y: 0, Kind: "CONVEYOR"}},
		{SessionID: "o1", Cmd: protocol.CmdMsg{ID: "c", Op: protocol.OpRemove, X: 110, Y: 110}},
	}
	var digests [2]string
	var logger recordingTickLogger
	for i := range digests {
		w := newTestWorld(t)
		if i == 0 {
			w.SetTickLogger(&logger)
		}
		w.StepOnce([]JoinRequest{{SessionID: "o1", Role: protocol.RoleObserver}}, nil, nil)
		w.StepOnce(nil, nil, cmds)
		for j := 0; j < 30; j++ {
			_, digests[i] = w.StepOnce(nil, nil, nil)
		}
	}
	if digests[0] != digests[1] {
		t.Fatalf("same commands gave different digests")
	}
	if len(logger.entries) != 32 {
		t.Fatalf("logged %d ticks want 32", len(logger.entries))
	}
	if j := logger.entries[0].Joins; len(j) != 1 || j[0].Role != protocol.RoleObserver {
		t.Fatalf("join entry=%+v", j)
	}
	second := logger.entries[1]
	if second.Tick != 1 || len(second.Commands) != 3 || second.Commands[0].Code != "" ||
		second.Commands[1].Code != protocol.ErrInvalidTarget || second.Commands[2].Code != protocol.ErrNoPermission {
		t.Fatalf("command entry=%+v", second)
	}
}

func TestStep_IgnoresNonPositiveDt(t *testing.T) {
	w := newTestWorld(t)
	before := w.stateDigest()
	w.Step(0)
	w.Step(-1)
	if w.stateDigest() != before || w.CurrentTick() != 0 {
		t.Fatalf("non-positive dt advanced the world")
	}
}
