package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/world"
)

func TestTickLogger_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for tick := uint64(0); tick < 3; tick++ {
		e := world.TickLogEntry{Tick: tick, Digest: "d"}
		if tick == 1 {
			e.Commands = []world.RecordedCommand{{SessionID: "s", Cmd: protocol.CmdMsg{Op: protocol.OpPlace, X: 1, Y: 2, Kind: "CONVEYOR"}}}
			clock = clock.Add(2 * time.Minute)
		}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(filepath.Join(dir, "ticks"), "ticks")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v want 2 hours", files)
	}
	var got []world.TickLogEntry
	for _, f := range files {
		if err := ReadTicks(f, func(e world.TickLogEntry) error {
			got = append(got, e)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(got) != 3 || got[0].Tick != 0 || got[2].Tick != 2 {
		t.Fatalf("entries=%+v", got)
	}
	if c := got[1].Commands; len(c) != 1 || c[0].Cmd.Kind != "CONVEYOR" || c[0].Cmd.Y != 2 {
		t.Fatalf("command lost: %+v", got[1])
	}
}

func TestAuditLogger_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l := NewAuditLogger(dir)
		if err := l.WriteAudit(world.AuditEntry{Tick: uint64(i), Action: "PLACE"}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	files, err := ListFiles(filepath.Join(dir, "audit"), "audit")
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
}
