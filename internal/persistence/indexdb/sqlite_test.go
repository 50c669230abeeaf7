package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world"
)

func openTemp(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index", "world.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return idx, dbPath
}

func count(t *testing.T, db *sql.DB, q string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", q, err)
	}
	return n
}

func TestSQLiteIndex_WritesTicksAndAudits(t *testing.T) {
	idx, dbPath := openTemp(t)

	_ = idx.WriteTick(world.TickLogEntry{
		Tick:   1,
		Joins:  []world.RecordedJoin{{SessionID: "s1", Name: "alice", Role: protocol.RolePlayer}},
		Digest: "d1",
		Commands: []world.RecordedCommand{
			{SessionID: "s1", Cmd: protocol.CmdMsg{ID: "a", Op: protocol.OpPlace, X: 1, Y: 2, Kind: "CONVEYOR"}},
			{SessionID: "s1", Cmd: protocol.CmdMsg{ID: "b", Op: protocol.OpPlace, X: 1, Y: 2, Kind: "CONVEYOR"}, Code: protocol.ErrConflict},
		},
	})
	_ = idx.WriteTick(world.TickLogEntry{Tick: 2, Leaves: []string{"s1"}, Digest: "d2"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 1, Actor: "s1", Action: "PLACE", Pos: [2]int{1, 2}, Kind: "CONVEYOR"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 1, Actor: "s1", Action: "ROTATE", Pos: [2]int{1, 2}, Kind: "CONVEYOR"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 2, Actor: "s1", Action: "REMOVE", Pos: [2]int{1, 2}, Kind: "CONVEYOR"})

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Writes after close are ignored.
	_ = idx.WriteTick(world.TickLogEntry{Tick: 3})

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	if n := count(t, db, `SELECT COUNT(*) FROM ticks`); n != 2 {
		t.Fatalf("ticks=%d want 2", n)
	}
	if n := count(t, db, `SELECT rejected FROM ticks WHERE tick=1`); n != 1 {
		t.Fatalf("rejected=%d want 1", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM joins WHERE session_id='s1' AND role=?`, protocol.RolePlayer); n != 1 {
		t.Fatalf("joins=%d want 1", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM leaves WHERE tick=2`); n != 1 {
		t.Fatalf("leaves=%d want 1", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM commands WHERE tick=1`); n != 2 {
		t.Fatalf("commands=%d want 2", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM audits WHERE x=1 AND y=2`); n != 3 {
		t.Fatalf("audits=%d want 3", n)
	}
	if n := count(t, db, `SELECT MAX(seq) FROM audits WHERE tick=1`); n != 1 {
		t.Fatalf("audit seq restarts per tick, max=%d want 1", n)
	}
}

func TestSQLiteIndex_RecordSaveAndQueries(t *testing.T) {
	idx, _ := openTemp(t)
	defer idx.Close()

	snap := snapshot.SaveV1{
		Header:  snapshot.Header{Version: snapshot.Version, WorldID: "w1", Tick: 600},
		Seed:    7,
		Width:   64,
		Height:  64,
		Regions: []snapshot.RegionV1{{ID: 0, Unlocked: true}, {ID: 1}},
		Tiles: []snapshot.TileV1{
			{X: 1, Y: 1, Kind: "CONVEYOR"},
			{X: 4, Y: 4, Kind: "SMELTER"},
			{X: 5, Y: 4, Kind: "SMELTER", HasParent: true, ParentX: 4, ParentY: 4},
		},
		Belts: []snapshot.BeltV1{{X: 1, Y: 1, Items: []snapshot.BeltItemV1{{Item: "ORE"}, {Item: "ORE"}}}},
		Stats: snapshot.StatsV1{Research: 12},
	}
	idx.RecordSave("/tmp/600.snap.zst", snap)
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:     600,
		Commands: []world.RecordedCommand{{SessionID: "s9", Cmd: protocol.CmdMsg{Op: protocol.OpRemove}, Code: protocol.ErrInvalidTarget}},
	})

	// RecordSave commits immediately; poll until the writer catches up.
	var (
		rec SaveRecord
		ok  bool
		err error
	)
	for i := 0; i < 200 && !ok; i++ {
		rec, ok, err = idx.LatestSave()
		if err != nil {
			t.Fatalf("latest: %v", err)
		}
		if !ok {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !ok {
		t.Fatalf("save not indexed")
	}
	if rec.Tick != 600 || rec.WorldID != "w1" || rec.Buildings != 2 || rec.BeltItems != 2 || rec.Research != 12 {
		t.Fatalf("save record=%+v", rec)
	}

	n := 0
	for i := 0; i < 200 && n == 0; i++ {
		if n, err = idx.RejectedCommands("s9"); err != nil {
			t.Fatalf("rejected: %v", err)
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if n != 1 {
		t.Fatalf("rejected commands=%d want 1", n)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	idx, _ := openTemp(t)
	defer idx.Close()

	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Idempotent.
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	d, err := idx.CatalogDigest("buildings")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d != cats.Buildings.Digest {
		t.Fatalf("buildings digest=%q want %q", d, cats.Buildings.Digest)
	}
	if d, _ := idx.CatalogDigest("tuning"); d == "" {
		t.Fatalf("tuning row missing")
	}
	if d, _ := idx.CatalogDigest("nope"); d != "" {
		t.Fatalf("unexpected digest for unknown catalog")
	}
	if n := count(t, idx.db, `SELECT COUNT(*) FROM catalogs`); n != 6 {
		t.Fatalf("catalog rows=%d want 6", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordSave("/tmp/2.snap.zst", snapshot.SaveV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropSaveTotal != 1 {
		t.Fatalf("drops=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_SavesAndTileHistory(t *testing.T) {
	idx, dbPath := openTemp(t)
	for _, tick := range []uint64{3600, 7200} {
		idx.RecordSave("/tmp/x.snap.zst", snapshot.SaveV1{Header: snapshot.Header{Version: snapshot.Version, WorldID: "w1", Tick: tick}})
	}
	_ = idx.WriteAudit(world.AuditEntry{Tick: 5, Actor: "s1", Action: "PLACE", Pos: [2]int{3, 4}, Kind: "CONVEYOR"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 9, Actor: "s1", Action: "REMOVE", Pos: [2]int{3, 4}, Kind: "CONVEYOR"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 9, Actor: "s1", Action: "PLACE", Pos: [2]int{8, 8}, Kind: "MINER"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	saves, err := idx.Saves(10)
	if err != nil {
		t.Fatalf("saves: %v", err)
	}
	if len(saves) != 2 || saves[0].Tick != 7200 || saves[1].Tick != 3600 {
		t.Fatalf("saves=%+v", saves)
	}
	hist, err := idx.AuditsAt(3, 4, 0)
	if err != nil {
		t.Fatalf("audits: %v", err)
	}
	if len(hist) != 2 || hist[0].Action != "PLACE" || hist[1].Action != "REMOVE" || hist[1].Tick != 9 {
		t.Fatalf("history=%+v", hist)
	}
}
