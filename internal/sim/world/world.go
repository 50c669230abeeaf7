package world

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world/feature/production"
	"github.com/loguhan/FactoryGame/internal/sim/world/feature/progression"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/belt"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/power"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/rates"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
	"github.com/loguhan/FactoryGame/internal/sim/world/terrain/store"
)

type Config struct {
	ID     string
	Tuning tuning.Tuning
	// Rand drives the miner output shuffle. Nil seeds one from Tuning.Seed.
	Rand *rand.Rand
}

// Tile is one grid cell. Non-origin cells of multi-block buildings carry
// Parent; only the origin owns entity state.
type Tile struct {
	Kind   catalogs.BuildingKind `json:"kind"`
	Dir    geom.Direction        `json:"dir"`
	Parent *geom.Pos             `json:"parent,omitempty"`
}

func (t Tile) Empty() bool { return t.Kind == catalogs.KindNone }

type MinerState struct {
	Timer float64 `json:"timer"`
}

type StorageState struct {
	Count int `json:"count"`
}

// Cursor is the round-robin position of a splitter or router.
type Cursor struct {
	Index int `json:"index"`
}

type UndergroundState struct {
	Linked *geom.Pos      `json:"linked,omitempty"`
	Dir    geom.Direction `json:"dir"`
}

type CoalGeneratorState struct {
	FuelTimer float64 `json:"fuel_timer"`
	HasFuel   bool    `json:"has_fuel"`
}

// LooseItem is an item resting on or moving between non-belt cells. Dir is
// None while it waits for a move.
type LooseItem struct {
	Kind     catalogs.ItemKind `json:"kind"`
	Pos      geom.Pos          `json:"pos"`
	Dir      geom.Direction    `json:"dir"`
	Progress float64           `json:"progress"`
	Speed    float64           `json:"speed"`
}

// World is a single-threaded authoritative simulation. Step mutates it
// directly; once Run is started, all access goes through the loop.
type World struct {
	cfg  Config
	tun  tuning.Tuning
	cats *catalogs.Catalogs
	rng  *rand.Rand

	seed  int64
	tick  atomic.Uint64
	clock float64

	terrain    *store.Store
	tiles      []Tile
	congestion []float64

	// buildings maps every origin to its kind.
	buildings    map[geom.Pos]catalogs.BuildingKind
	belts        map[geom.Pos]*belt.Track
	miners       map[geom.Pos]*MinerState
	processors   map[geom.Pos]*production.State
	storages     map[geom.Pos]*StorageState
	splitters    map[geom.Pos]*Cursor
	routers      map[geom.Pos]*Cursor
	undergrounds map[geom.Pos]*UndergroundState
	coalGens     map[geom.Pos]*CoalGeneratorState
	loose        []*LooseItem

	inventory map[catalogs.ItemKind]int
	ledger    *progression.Ledger
	plates    *rates.Sliding
	science   *rates.Sliding
	power     power.Report

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SaveV1
	tickObserver TickObserver

	events   []protocol.Event
	recorded []RecordedCommand

	observers map[string]*observer
	join      chan JoinRequest
	leave     chan string
	inbox     chan CommandEnvelope
	views     chan *viewReq
	saves     chan saveReq
	loads     chan loadReq
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickObserver receives a summary after every tick of Run.
type TickObserver interface {
	ObserveTick(s TickSummary)
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Joins    []RecordedJoin    `json:"joins,omitempty"`
	Leaves   []string          `json:"leaves,omitempty"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Digest   string            `json:"digest"`
}

// RecordedJoin is enough to replay a join: the role decides which commands
// the session may run.
type RecordedJoin struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
}

type RecordedCommand struct {
	SessionID string          `json:"session_id"`
	Cmd       protocol.CmdMsg `json:"cmd"`
	Code      string          `json:"code,omitempty"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "PLACE"
	Pos     [2]int         `json:"pos"`
	Kind    string         `json:"kind,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(cfg Config, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:       cfg,
		tun:       cfg.Tuning,
		cats:      cats,
		rng:       cfg.Rand,
		observers: map[string]*observer{},
		join:      make(chan JoinRequest, 64),
		leave:     make(chan string, 64),
		inbox:     make(chan CommandEnvelope, 1024),
		views:     make(chan *viewReq, 64),
		saves:     make(chan saveReq, 8),
		loads:     make(chan loadReq, 8),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(cfg.Tuning.Seed))
	}
	w.reset(cfg.Tuning.Seed)
	for k, n := range cfg.Tuning.StartingInventory {
		if _, ok := cats.Items.Defs[catalogs.ItemKind(k)]; !ok {
			return nil, fmt.Errorf("starting_inventory: unknown item %s", k)
		}
		w.inventory[catalogs.ItemKind(k)] += n
	}
	return w, nil
}

// reset clears all mutable state and regenerates the starting regions.
func (w *World) reset(seed int64) {
	t := w.tun
	n := t.MapWidth * t.MapHeight
	w.seed = seed
	w.tick.Store(0)
	w.clock = 0
	w.terrain = store.New(genpkg.New(genpkg.Params{
		Seed:          seed,
		NoiseScale:    t.Regions.NoiseScale,
		WaterBelow:    t.Regions.WaterBelow,
		MountainAbove: t.Regions.MountainAbove,
	}), w.storeConfig())
	w.tiles = make([]Tile, n)
	w.congestion = make([]float64, n)
	w.buildings = map[geom.Pos]catalogs.BuildingKind{}
	w.belts = map[geom.Pos]*belt.Track{}
	w.miners = map[geom.Pos]*MinerState{}
	w.processors = map[geom.Pos]*production.State{}
	w.storages = map[geom.Pos]*StorageState{}
	w.splitters = map[geom.Pos]*Cursor{}
	w.routers = map[geom.Pos]*Cursor{}
	w.undergrounds = map[geom.Pos]*UndergroundState{}
	w.coalGens = map[geom.Pos]*CoalGeneratorState{}
	w.loose = nil
	w.inventory = map[catalogs.ItemKind]int{}
	w.ledger = progression.New(w.cats)
	w.plates = rates.NewSliding(t.RateWindowSeconds)
	w.science = rates.NewSliding(t.RateWindowSeconds)
	w.power = power.Report{Ratio: 1}
}

func (w *World) storeConfig() store.Config {
	return store.Config{
		Width:           w.tun.MapWidth,
		Height:          w.tun.MapHeight,
		RegionSize:      w.tun.RegionSize,
		BaseCost:        w.tun.Regions.BaseCost,
		CostPerDistance: w.tun.Regions.CostPerDistance,
	}
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SaveV1) { w.snapshotSink = ch }
func (w *World) SetTickObserver(o TickObserver)            { w.tickObserver = o }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }
func (w *World) Tuning() tuning.Tuning        { return w.tun }

// CurrentTick is safe to call from any goroutine.
func (w *World) CurrentTick() uint64 { return w.tick.Load() }
