package world

import (
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

func (w *World) audit(action string, pos geom.Pos, kind, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    w.tick.Load(),
		Actor:   "WORLD",
		Action:  action,
		Pos:     [2]int{pos.X, pos.Y},
		Kind:    kind,
		Reason:  reason,
		Details: details,
	})
}

// event queues a notice for the next state frame.
func (w *World) event(kind, detail string) {
	if len(w.observers) == 0 {
		return
	}
	w.events = append(w.events, protocol.Event{Tick: w.tick.Load(), Kind: kind, Detail: detail})
}
