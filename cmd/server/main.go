package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/loguhan/FactoryGame/internal/api"
	"github.com/loguhan/FactoryGame/internal/metrics"
	"github.com/loguhan/FactoryGame/internal/persistence/archive"
	"github.com/loguhan/FactoryGame/internal/persistence/indexdb"
	persistlog "github.com/loguhan/FactoryGame/internal/persistence/log"
	"github.com/loguhan/FactoryGame/internal/persistence/slots"
	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world"
	"github.com/loguhan/FactoryGame/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "factory_1", "world id")
		seed       = flag.Int64("seed", 0, "world seed override (0 keeps the tuning seed)")
		configDir  = flag.String("configs", "./configs", "config directory; catalog files missing here use the built-in defaults")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (ticks, audits, catalogs, saves)")
		noSlots    = flag.Bool("disable_slots", false, "disable named save slots")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		keepSnaps  = flag.Int("keep_snapshots", 24, "rolling snapshots to keep (0 keeps all)")
		archiveN   = flag.Uint64("archive_every_ticks", 216000, "copy a checkpoint to archives/ every N ticks (0 disables)")

		maxCmds = flag.Int("max_cmds_per_sec", 30, "per-connection command rate limit")
		pprofOn = flag.Bool("pprof", false, "serve /debug/pprof")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapDir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	w, err := world.New(world.Config{ID: *worldID, Tuning: tune}, cats)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad, _ = archive.Latest(snapDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		if err := w.ImportSave(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	}

	var slotStore *slots.Store
	if !*noSlots {
		slotStore, err = slots.Open(filepath.Join(worldDir, "slots"))
		if err != nil {
			logger.Fatalf("open slots: %v", err)
		}
		defer slotStore.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	if idx != nil {
		w.SetTickLogger(multiTickLogger{tickLog, idx})
		w.SetAuditLogger(multiAuditLogger{auditLog, idx})
	} else {
		w.SetTickLogger(tickLog)
		w.SetAuditLogger(auditLog)
	}

	m := metrics.New()
	w.SetTickObserver(m)
	if idx != nil {
		m.GaugeFunc("index_queue_depth", "Pending sqlite index writes.", func() float64 { return float64(idx.Stats().QueueDepth) })
		m.GaugeFunc("index_dropped", "Index writes dropped because the queue was full.", func() float64 {
			st := idx.Stats()
			return float64(st.DropTickTotal + st.DropAuditTotal + st.DropSaveTotal)
		})
	}

	snapCh := make(chan snapshot.SaveV1, 2)
	w.SetSnapshotSink(snapCh)
	go runSnapshotWriter(ctx, snapCh, snapshotWriter{
		worldDir:     worldDir,
		snapDir:      snapDir,
		keep:         *keepSnaps,
		archiveEvery: *archiveN,
		idx:          idx,
		log:          logger,
	})

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	apiSrv := api.New(api.Config{World: w, Slots: slotStore, Metrics: m, Log: logger})
	mux := http.NewServeMux()
	mux.Handle("/", apiSrv.Handler())
	mux.HandleFunc("/v1/ws", ws.NewServer(w, ws.Config{MaxCommandsPerSecond: *maxCmds}, logger).Handler())
	if *pprofOn {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world=%s seed=%d map=%dx%d listening on %s", *worldID, tune.Seed, tune.MapWidth, tune.MapHeight, *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("world stopped: %v", err)
	}
	// Final save so the next start resumes where this one stopped.
	final := w.ExportSave()
	path := filepath.Join(snapDir, fmt.Sprintf("%d.snap.zst", final.Header.Tick))
	if err := snapshot.WriteSnapshot(path, final); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		idx.RecordSave(path, final)
		logger.Printf("final snapshot tick=%d", final.Header.Tick)
	}
}

type snapshotWriter struct {
	worldDir     string
	snapDir      string
	keep         int
	archiveEvery uint64
	idx          *indexdb.SQLiteIndex
	log          *log.Logger
}

func runSnapshotWriter(ctx context.Context, ch <-chan snapshot.SaveV1, sw snapshotWriter) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			path := filepath.Join(sw.snapDir, fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				sw.log.Printf("snapshot write: %v", err)
				continue
			}
			sw.idx.RecordSave(path, snap)
			if n, archived, ok, err := archive.Checkpoint(sw.worldDir, path, snap, sw.archiveEvery); err != nil {
				sw.log.Printf("archive checkpoint: %v", err)
			} else if ok {
				sw.log.Printf("checkpoint %d archived to %s", n, archived)
			}
			if removed, err := archive.Prune(sw.snapDir, sw.keep); err != nil {
				sw.log.Printf("prune snapshots: %v", err)
			} else if len(removed) > 0 {
				sw.log.Printf("pruned %d snapshots", len(removed))
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
