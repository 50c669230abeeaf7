package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world"
)

// SQLiteIndex is a queryable secondary copy of the tick and audit logs plus
// the save history. Writes are queued and applied by one goroutine in
// batched transactions; the JSONL logs stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropAudit atomic.Uint64
	dropSave  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSave
)

type req struct {
	kind reqKind

	tick  world.TickLogEntry
	audit world.AuditEntry
	save  saveRow
}

type saveRow struct {
	Tick       uint64
	Path       string
	WorldID    string
	Seed       int64
	Width      int
	Height     int
	Regions    int
	Buildings  int
	Belts      int
	BeltItems  int
	LooseItems int
	Research   int
}

// Stats reports queue pressure for metrics.
type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropTickTotal  uint64
	DropAuditTotal uint64
	DropSaveTotal  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Placement bursts produce one audit row per command.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS joins (
			tick INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			name TEXT,
			role TEXT NOT NULL,
			PRIMARY KEY (tick, session_id)
		);`,
		`CREATE TABLE IF NOT EXISTS leaves (
			tick INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			PRIMARY KEY (tick, session_id)
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			op TEXT NOT NULL,
			code TEXT,
			cmd_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS commands_session ON commands(session_id, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			kind TEXT,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS audits_pos ON audits(x, y);`,
		`CREATE TABLE IF NOT EXISTS saves (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			regions INTEGER NOT NULL,
			buildings INTEGER NOT NULL,
			belts INTEGER NOT NULL,
			belt_items INTEGER NOT NULL,
			loose_items INTEGER NOT NULL,
			research INTEGER NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
		DropSaveTotal:  s.dropSave.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

// RecordSave indexes a save written to path.
func (s *SQLiteIndex) RecordSave(path string, snap snapshot.SaveV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := saveRow{
		Tick:       snap.Header.Tick,
		Path:       path,
		WorldID:    snap.Header.WorldID,
		Seed:       snap.Seed,
		Width:      snap.Width,
		Height:     snap.Height,
		Belts:      len(snap.Belts),
		LooseItems: len(snap.LooseItems),
		Research:   snap.Stats.Research,
	}
	for _, reg := range snap.Regions {
		if reg.Unlocked {
			r.Regions++
		}
	}
	for _, t := range snap.Tiles {
		if !t.HasParent {
			r.Buildings++
		}
	}
	for _, b := range snap.Belts {
		r.BeltItems += len(b.Items)
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		s.dropSave.Add(1)
	}
}

// UpsertCatalogs stores the active catalogs and tuning so an index can be
// interpreted without the config directory that produced it.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	if cats == nil {
		return errors.New("nil catalogs")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	add := func(name, digest string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if digest == "" {
			digest = sha256Hex(b)
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
		return nil
	}

	items := make([]catalogs.ItemDef, 0, len(cats.Items.Order))
	for _, k := range cats.Items.Order {
		items = append(items, cats.Items.Defs[k])
	}
	buildings := make([]catalogs.BuildingDef, 0, len(cats.Buildings.Order))
	for _, k := range cats.Buildings.Order {
		buildings = append(buildings, cats.Buildings.Defs[k])
	}
	recipes := make([]catalogs.RecipeDef, 0, len(cats.Recipes.Order))
	for _, id := range cats.Recipes.Order {
		recipes = append(recipes, cats.Recipes.ByID[id])
	}
	if err := add("items_defs", cats.Items.DefsDigest, items); err != nil {
		return err
	}
	if err := add("items_palette", cats.Items.PaletteDigest, cats.Items.Palette); err != nil {
		return err
	}
	if err := add("buildings", cats.Buildings.Digest, buildings); err != nil {
		return err
	}
	if err := add("recipes", cats.Recipes.Digest, recipes); err != nil {
		return err
	}
	if err := add("achievements", cats.Achievements.Digest, cats.Achievements.Order); err != nil {
		return err
	}

	// Tuning is stored as YAML so it can be fed back to -tuning.
	ty, err := yaml.Marshal(tune)
	if err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	tj, _ := json.Marshal(string(ty))
	rows = append(rows, kv{name: "tuning", digest: sha256Hex(ty), json: tj})

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest for name, or "" when absent.
func (s *SQLiteIndex) CatalogDigest(name string) (string, error) {
	var d string
	err := s.db.QueryRow(`SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return d, err
}

// SaveRecord is one row of the saves table.
type SaveRecord struct {
	Tick      uint64
	Path      string
	WorldID   string
	Buildings int
	BeltItems int
	Research  int
}

// LatestSave returns the most recent indexed save; ok is false when none
// was recorded.
func (s *SQLiteIndex) LatestSave() (SaveRecord, bool, error) {
	var r SaveRecord
	var tick int64
	err := s.db.QueryRow(`SELECT tick,path,world_id,buildings,belt_items,research FROM saves ORDER BY tick DESC LIMIT 1`).
		Scan(&tick, &r.Path, &r.WorldID, &r.Buildings, &r.BeltItems, &r.Research)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.Tick = uint64(tick)
	return r, true, nil
}

// RejectedCommands counts commands recorded with a non-empty code.
func (s *SQLiteIndex) RejectedCommands(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM commands WHERE session_id=? AND code<>''`, sessionID).Scan(&n)
	return n, err
}

// Saves lists indexed saves newest first.
func (s *SQLiteIndex) Saves(limit int) ([]SaveRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT tick,path,world_id,buildings,belt_items,research FROM saves ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRecord
	for rows.Next() {
		var r SaveRecord
		var tick int64
		if err := rows.Scan(&tick, &r.Path, &r.WorldID, &r.Buildings, &r.BeltItems, &r.Research); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AuditRecord is one row of the audits table.
type AuditRecord struct {
	Tick   uint64 `json:"tick"`
	Seq    int    `json:"seq"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// AuditsAt returns the history of one tile, oldest first.
func (s *SQLiteIndex) AuditsAt(x, y, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT tick,seq,actor,action,x,y,COALESCE(kind,''),COALESCE(reason,'') FROM audits WHERE x=? AND y=? ORDER BY tick,seq LIMIT ?`, x, y, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRecord
	for rows.Next() {
		var r AuditRecord
		var tick int64
		if err := rows.Scan(&tick, &r.Seq, &r.Actor, &r.Action, &r.X, &r.Y, &r.Kind, &r.Reason); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func sha256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,joins,leaves,commands,rejected,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertJoin, _ := s.db.Prepare(`INSERT OR REPLACE INTO joins(tick,session_id,name,role) VALUES(?,?,?,?)`)
	insertLeave, _ := s.db.Prepare(`INSERT OR REPLACE INTO leaves(tick,session_id) VALUES(?,?)`)
	insertCmd, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(tick,seq,session_id,op,code,cmd_json) VALUES(?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,kind,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(tick,path,world_id,seed,width,height,regions,buildings,belts,belt_items,loose_items,research) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertJoin, insertLeave, insertCmd, insertAudit, insertSave} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			rejected := 0
			for _, c := range e.Commands {
				if c.Code != "" {
					rejected++
				}
			}
			b, _ := json.Marshal(e)
			if !exec(insertTick, int64(e.Tick), e.Digest, len(e.Joins), len(e.Leaves), len(e.Commands), rejected, string(b)) {
				continue
			}
			ok := true
			for _, j := range e.Joins {
				if ok = exec(insertJoin, int64(e.Tick), j.SessionID, j.Name, j.Role); !ok {
					break
				}
			}
			for _, id := range e.Leaves {
				if !ok {
					break
				}
				ok = exec(insertLeave, int64(e.Tick), id)
			}
			for i, c := range e.Commands {
				if !ok {
					break
				}
				cb, _ := json.Marshal(c.Cmd)
				ok = exec(insertCmd, int64(e.Tick), i, c.SessionID, c.Cmd.Op, c.Code, string(cb))
			}
			if !ok {
				continue
			}
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			b, _ := json.Marshal(a)
			if !exec(insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.Pos[0], a.Pos[1], a.Kind, a.Reason, string(b)) {
				continue
			}
		case reqSave:
			v := r.save
			if !exec(insertSave, int64(v.Tick), v.Path, v.WorldID, v.Seed, v.Width, v.Height, v.Regions, v.Buildings, v.Belts, v.BeltItems, v.LooseItems, v.Research) {
				continue
			}
			// Saves are rare; make them visible immediately.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
