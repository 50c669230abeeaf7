package world

import (
	"sync/atomic"
	"time"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
)

// JoinRequest registers a session. Out receives marshalled STATE and ACK
// messages; the caller owns draining it.
type JoinRequest struct {
	SessionID string
	Name      string
	Role      string
	Out       chan []byte
	Resp      chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

// CommandEnvelope is one command queued for the next tick. Resp, when set,
// receives the ack in addition to the session's Out channel.
type CommandEnvelope struct {
	SessionID string
	Cmd       protocol.CmdMsg
	Resp      chan protocol.AckMsg
}

// TickSummary is what Run reports to a TickObserver after each tick.
type TickSummary struct {
	Tick       uint64
	Duration   time.Duration
	Commands   int
	Rejected   int
	Sessions   int
	Buildings  int
	BeltItems  int
	LooseItems int
	PowerRatio float64
}

type observer struct {
	id   string
	name string
	role string
	out  chan []byte
}

const (
	viewPending int32 = iota
	viewClaimed
	viewAbandoned
)

// viewReq is claimed exactly once: by the loop, which then runs fn, or by
// a caller that gave up waiting, after which fn never runs.
type viewReq struct {
	fn    func(*World)
	done  chan struct{}
	state atomic.Int32
}

type saveReq struct {
	resp chan saveResult
}

type saveResult struct {
	snap snapshot.SaveV1
}

type loadReq struct {
	snap snapshot.SaveV1
	resp chan error
}
