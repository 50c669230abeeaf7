package world

import (
	"context"
	"encoding/json"
	"time"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingCmds []CommandEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingSaves []saveReq
	var pendingLoads []loadReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingCmds = append(pendingCmds, env)
		case req := <-w.views:
			w.serveView(req)
		case req := <-w.saves:
			pendingSaves = append(pendingSaves, req)
		case req := <-w.loads:
			pendingLoads = append(pendingLoads, req)
		case <-ticker.C:
			w.stepInternal(pendingJoins, pendingLeaves, pendingCmds, pendingLoads)
			for _, req := range pendingSaves {
				req.resp <- saveResult{snap: w.ExportSave()}
			}
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingCmds = pendingCmds[:0]
			pendingSaves = pendingSaves[:0]
			pendingLoads = pendingLoads[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Done is closed once Run has returned.
func (w *World) Done() <-chan struct{} { return w.done }

func (w *World) Join() chan<- JoinRequest      { return w.join }
func (w *World) Leave() chan<- string          { return w.leave }
func (w *World) Inbox() chan<- CommandEnvelope { return w.inbox }

// StepOnce runs one tick with the same ordering as Run and returns the tick
// it stepped and the digest of the resulting state. Used by replays and tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, cmds []CommandEnvelope) (tick uint64, digest string) {
	return w.stepInternal(joins, leaves, cmds, nil)
}

func (w *World) stepInternal(joins []JoinRequest, leaves []string, cmds []CommandEnvelope, loads []loadReq) (uint64, string) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := w.observers[id]; ok {
			delete(w.observers, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := w.joinSession(req)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{SessionID: req.SessionID, Name: req.Name, Role: resp.Welcome.Role})
	}

	for _, req := range loads {
		err := w.ImportSave(req.snap)
		if err == nil {
			w.audit("LOAD", geom.Pos{}, "", "", map[string]any{"tick": req.snap.Header.Tick})
		}
		req.resp <- err
	}

	// Commands apply in inbox order.
	rejected := 0
	recorded := make([]RecordedCommand, 0, len(cmds))
	for _, env := range cmds {
		err := w.applyCommand(env.SessionID, env.Cmd)
		code := CodeFor(err)
		if code != "" {
			rejected++
		}
		recorded = append(recorded, RecordedCommand{SessionID: env.SessionID, Cmd: env.Cmd, Code: code})
		ack := protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          env.Cmd.ID,
			Accepted:        err == nil,
			Code:            code,
			ServerTick:      nowTick,
			WorldID:         w.cfg.ID,
		}
		if err != nil {
			ack.Message = err.Error()
		}
		if env.Resp != nil {
			env.Resp <- ack
		}
		if o := w.observers[env.SessionID]; o != nil {
			if b, err := json.Marshal(ack); err == nil {
				sendLatest(o.out, b)
			}
		}
	}
	w.recorded = recorded

	w.Step(1.0 / float64(w.tun.TickRateHz))

	if every := w.tun.StateEveryTicks; every > 0 && len(w.observers) > 0 && nowTick%uint64(every) == 0 {
		w.broadcastState()
	}

	digest := w.stateDigest()
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Joins: recordedJoins, Leaves: recordedLeaves, Commands: recorded, Digest: digest})
	}

	// Snapshot whenever the next tick to run is a multiple of N.
	if w.snapshotSink != nil && w.tun.SnapshotEveryTicks > 0 {
		if (nowTick+1)%uint64(w.tun.SnapshotEveryTicks) == 0 {
			select {
			case w.snapshotSink <- w.ExportSave():
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	if w.tickObserver != nil {
		beltItems := 0
		for _, tr := range w.belts {
			beltItems += tr.Len()
		}
		w.tickObserver.ObserveTick(TickSummary{
			Tick:       nowTick,
			Duration:   time.Since(stepStart),
			Commands:   len(cmds),
			Rejected:   rejected,
			Sessions:   len(w.observers),
			Buildings:  len(w.buildings),
			BeltItems:  beltItems,
			LooseItems: len(w.loose),
			PowerRatio: w.power.Ratio,
		})
	}
	return nowTick, digest
}

func (w *World) broadcastState() {
	msg := w.buildState()
	w.events = w.events[:0]
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, id := range sortedSessionIDs(w.observers) {
		sendLatest(w.observers[id].out, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

// View runs fn on the simulation goroutine between ticks. fn must not
// retain references to world internals. When View returns an error fn has
// not run and never will, so callers may read what fn writes only on nil.
func (w *World) View(ctx context.Context, fn func(*World)) error {
	req := &viewReq{fn: fn, done: make(chan struct{})}
	select {
	case w.views <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
	var err error
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		err = ctx.Err()
	case <-w.done:
		err = ErrStopped
	}
	if req.state.CompareAndSwap(viewPending, viewAbandoned) {
		return err
	}
	// The loop already claimed it; fn is running or done.
	<-req.done
	return nil
}

func (w *World) serveView(req *viewReq) {
	if req.state.CompareAndSwap(viewPending, viewClaimed) {
		req.fn(w)
	}
	close(req.done)
}

// Submit queues a command for the next tick and waits for its ack.
func (w *World) Submit(ctx context.Context, sessionID string, cmd protocol.CmdMsg) (protocol.AckMsg, error) {
	resp := make(chan protocol.AckMsg, 1)
	select {
	case w.inbox <- CommandEnvelope{SessionID: sessionID, Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return protocol.AckMsg{}, ctx.Err()
	case <-w.done:
		return protocol.AckMsg{}, ErrStopped
	}
	select {
	case ack := <-resp:
		return ack, nil
	case <-ctx.Done():
		return protocol.AckMsg{}, ctx.Err()
	case <-w.done:
		return protocol.AckMsg{}, ErrStopped
	}
}

// Save exports the state at the next tick boundary.
func (w *World) Save(ctx context.Context) (snapshot.SaveV1, error) {
	req := saveReq{resp: make(chan saveResult, 1)}
	select {
	case w.saves <- req:
	case <-ctx.Done():
		return snapshot.SaveV1{}, ctx.Err()
	case <-w.done:
		return snapshot.SaveV1{}, ErrStopped
	}
	select {
	case r := <-req.resp:
		return r.snap, nil
	case <-ctx.Done():
		return snapshot.SaveV1{}, ctx.Err()
	case <-w.done:
		return snapshot.SaveV1{}, ErrStopped
	}
}

// Load replaces the world state with snap at the next tick boundary. On
// error the running state is unchanged.
func (w *World) Load(ctx context.Context, snap snapshot.SaveV1) error {
	req := loadReq{snap: snap, resp: make(chan error, 1)}
	select {
	case w.loads <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
}
