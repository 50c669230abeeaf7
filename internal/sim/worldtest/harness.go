package worldtest

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

// Harness drives a world through its exported API the way a transport does:
// sessions join through StepOnce, commands travel as CMD messages and every
// session's Out channel is decoded as STATE/ACK frames.
//
// It never touches world internals so tests can live outside the world
// package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	DefaultSession string
	// Digest is the state digest after the latest tick the harness ran.
	Digest string

	sessions map[string]*session
	seq      int
}

type session struct {
	ID        string
	Out       chan []byte
	lastState protocol.StateMsg
	acks      int
}

// NewHarness builds a world from tune and joins one player session.
func NewHarness(t *testing.T, tune tuning.Tuning, name string) *Harness {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.Config{ID: "test", Tuning: tune}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, name)
}

// NewHarnessWithWorld is like NewHarness but uses an existing world, e.g. one
// a save was imported into.
func NewHarnessWithWorld(t *testing.T, w *world.World, name string) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{
		T:        t,
		Cats:     w.Catalogs(),
		W:        w,
		sessions: map[string]*session{},
	}
	h.DefaultSession = h.Join(name, protocol.RolePlayer)
	return h
}

func (h *Harness) Join(name, role string) string {
	h.T.Helper()
	id := fmt.Sprintf("%s-%d", name, len(h.sessions)+1)
	out := make(chan []byte, 16)
	resp := make(chan world.JoinResponse, 1)
	_, h.Digest = h.W.StepOnce([]world.JoinRequest{{
		SessionID: id,
		Name:      name,
		Role:      role,
		Out:       out,
		Resp:      resp,
	}}, nil, nil)
	jr := <-resp
	if jr.Welcome.SessionID != id {
		h.T.Fatalf("join returned session %q want %q", jr.Welcome.SessionID, id)
	}
	h.sessions[id] = &session{ID: id, Out: out}
	h.drainAll()
	return id
}

func (h *Harness) Leave(id string) {
	h.T.Helper()
	_, h.Digest = h.W.StepOnce(nil, []string{id}, nil)
	delete(h.sessions, id)
	h.drainAll()
}

// Do runs one tick carrying a single command from the default session and
// returns its ack.
func (h *Harness) Do(cmd protocol.CmdMsg) protocol.AckMsg {
	return h.DoAs(h.DefaultSession, cmd)
}

func (h *Harness) DoAs(sessionID string, cmd protocol.CmdMsg) protocol.AckMsg {
	h.T.Helper()
	h.seq++
	if cmd.ID == "" {
		cmd.ID = fmt.Sprintf("c%d", h.seq)
	}
	cmd.Type = protocol.TypeCmd
	cmd.ProtocolVersion = protocol.Version
	resp := make(chan protocol.AckMsg, 1)
	_, h.Digest = h.W.StepOnce(nil, nil, []world.CommandEnvelope{{SessionID: sessionID, Cmd: cmd, Resp: resp}})
	h.drainAll()
	ack := <-resp
	if ack.AckFor != cmd.ID {
		h.T.Fatalf("ack for %q want %q", ack.AckFor, cmd.ID)
	}
	return ack
}

// MustDo fails the test unless the command is accepted.
func (h *Harness) MustDo(cmd protocol.CmdMsg) {
	h.T.Helper()
	if ack := h.Do(cmd); !ack.Accepted {
		h.T.Fatalf("%s at (%d,%d) rejected: %s %s", cmd.Op, cmd.X, cmd.Y, ack.Code, ack.Message)
	}
}

func (h *Harness) Place(x, y int, kind catalogs.BuildingKind, dir geom.Direction) protocol.AckMsg {
	d := ""
	if dir != geom.None {
		d = dir.String()
	}
	return h.Do(protocol.CmdMsg{Op: protocol.OpPlace, X: x, Y: y, Kind: string(kind), Dir: d})
}

func (h *Harness) MustPlace(x, y int, kind catalogs.BuildingKind, dir geom.Direction) {
	h.T.Helper()
	if ack := h.Place(x, y, kind, dir); !ack.Accepted {
		h.T.Fatalf("place %s at (%d,%d): %s %s", kind, x, y, ack.Code, ack.Message)
	}
}

// StepFor runs empty ticks for the given simulated seconds.
func (h *Harness) StepFor(seconds float64) {
	h.T.Helper()
	n := int(seconds*float64(h.W.Tuning().TickRateHz) + 0.5)
	for i := 0; i < n; i++ {
		_, h.Digest = h.W.StepOnce(nil, nil, nil)
		h.drainAll()
	}
}

// LastState returns the newest STATE frame the default session received.
func (h *Harness) LastState() protocol.StateMsg {
	return h.LastStateFor(h.DefaultSession)
}

func (h *Harness) LastStateFor(id string) protocol.StateMsg {
	h.T.Helper()
	s := h.sessions[id]
	if s == nil {
		h.T.Fatalf("unknown session %q", id)
	}
	return s.lastState
}

// AckFrames counts ACK frames delivered on a session's Out channel.
func (h *Harness) AckFrames(id string) int {
	h.T.Helper()
	s := h.sessions[id]
	if s == nil {
		h.T.Fatalf("unknown session %q", id)
	}
	return s.acks
}

// Save exports the world the way Run answers a save request.
func (h *Harness) Save() snapshot.SaveV1 {
	return h.W.ExportSave()
}

// Flatten turns every unlocked cell into ore-free grass so layouts don't
// depend on the generated terrain.
func (h *Harness) Flatten() {
	for _, r := range h.W.Regions() {
		if !r.Unlocked {
			continue
		}
		for y := r.Bounds.Y; y < r.Bounds.Y+r.Bounds.H; y++ {
			for x := r.Bounds.X; x < r.Bounds.X+r.Bounds.W; x++ {
				h.W.SetTerrain(geom.Pos{X: x, Y: y}, genpkg.Grass)
				h.W.SetOre(geom.Pos{X: x, Y: y}, catalogs.OreNone)
			}
		}
	}
}

// Origin returns the top-left cell of the first unlocked region.
func (h *Harness) Origin() geom.Pos {
	for _, r := range h.W.Regions() {
		if r.Unlocked {
			return geom.Pos{X: r.Bounds.X, Y: r.Bounds.Y}
		}
	}
	h.T.Fatalf("no unlocked region")
	return geom.Pos{}
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOne(s)
	}
}

func (h *Harness) drainOne(s *session) {
	h.T.Helper()
	for {
		select {
		case b := <-s.Out:
			base, err := protocol.DecodeBase(b)
			if err != nil {
				h.T.Fatalf("decode frame: %v", err)
			}
			switch base.Type {
			case protocol.TypeState:
				var st protocol.StateMsg
				if err := json.Unmarshal(b, &st); err != nil {
					h.T.Fatalf("unmarshal STATE: %v", err)
				}
				s.lastState = st
			case protocol.TypeAck:
				s.acks++
			}
			continue
		default:
		}
		return
	}
}
