package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"pixelgrid.io/internal/persistence/indexdb"
	persistlog "pixelgrid.io/internal/persistence/log"
	"pixelgrid.io/internal/persistence/snapshot"
	"pixelgrid.io/internal/sim/grid"
	"pixelgrid.io/internal/sim/tuning"
	"pixelgrid.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gridID     = flag.String("grid", "grid_1", "grid id")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	gridDir := filepath.Join(*dataDir, "grids", *gridID)
	_ = os.MkdirAll(gridDir, 0o755)

	g, err := grid.New(grid.Config{
		ID:                 *gridID,
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		AdminID:            tune.Admin.ID,
		FeeRequired:        tune.Fees.Required,
		MinClaimFee:        tune.Fees.MinClaimFee,
		EventJournalCap:    tune.EventJournalCap,
	})
	if err != nil {
		logger.Fatalf("grid: %v", err)
	}

	// Resume from snapshot (explicit path wins over latest-in-dir).
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(gridDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.GridID != "" && snap.Header.GridID != *gridID {
			logger.Fatalf("snapshot grid id mismatch: flag=%s snap=%s", *gridID, snap.Header.GridID)
		}
		if err := g.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d claimed=%d", filepath.Base(snapshotToLoad), g.CurrentTick(), g.TotalClaimed())
	}

	// Persistence wiring. The sim loop only sees the narrow logger
	// interfaces; everything behind them is off-thread.
	auditWriter := persistlog.NewAuditWriter(filepath.Join(gridDir, "audit"))
	defer auditWriter.Close()
	eventWriter := persistlog.NewEventWriter(filepath.Join(gridDir, "events"))
	defer eventWriter.Close()
	payouts := persistlog.NewPayoutLedger(filepath.Join(gridDir, "payouts"))
	defer payouts.Close()
	g.SetTransferrer(payouts)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(gridDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		g.SetAuditLogger(auditFan{auditWriter, idx})
		g.SetEventLogger(eventFan{eventWriter, idx})
	} else {
		g.SetAuditLogger(auditWriter)
		g.SetEventLogger(eventWriter)
	}

	// Off-thread snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	g.SetSnapshotSink(snapCh)
	go func() {
		for snap := range snapCh {
			path := filepath.Join(gridDir, fmt.Sprintf("snap_%012d.zst", snap.Header.Tick))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("write snapshot: %v", err)
				continue
			}
			if idx != nil {
				_ = idx.RecordSnapshot(snap.Header.Tick, path, snap.Counters.TotalClaimed)
			}
			logger.Printf("snapshot written tick=%d claimed=%d", snap.Header.Tick, snap.Counters.TotalClaimed)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := g.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("grid loop: %v", err)
		}
	}()

	wsServer := ws.NewServer(g, tune.Admin.Token, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/grid", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, g.RenderAll())
	})
	mux.HandleFunc("/v1/cells/", func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/v1/cells/")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			http.Error(w, "bad cell id", http.StatusBadRequest)
			return
		}
		m, err := g.Render(id)
		switch err {
		case nil:
			writeJSON(w, m)
		case grid.ErrInvalidID:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case grid.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"grid_id":       *gridID,
			"tick":          g.CurrentTick(),
			"total_claimed": g.TotalClaimed(),
			"cells":         grid.Cells,
		})
	})

	httpServer := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s (grid=%s tick_rate=%dhz fees=%v)", *addr, *gridID, tune.TickRateHz, tune.Fees.Required)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	// Capture a final snapshot while the loop is still serving queries.
	final := g.SnapshotNow()
	path := filepath.Join(gridDir, fmt.Sprintf("snap_%012d.zst", final.Header.Tick))
	if err := snapshot.WriteSnapshot(path, final); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("final snapshot written tick=%d", final.Header.Tick)
	}

	cancel()
	_ = httpServer.Shutdown(context.Background())
	if idx != nil {
		idx.Flush()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// latestSnapshot returns the newest snapshot file in dir, or "".
func latestSnapshot(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "snap_") && strings.HasSuffix(e.Name(), ".zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1])
}

// auditFan writes each audit entry to every backend.
type auditFan []grid.AuditLogger

func (f auditFan) WriteAudit(entry grid.AuditEntry) error {
	var firstErr error
	for _, l := range f {
		if err := l.WriteAudit(entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type eventFan []grid.EventLogger

func (f eventFan) WriteEvent(entry grid.EventLogEntry) error {
	var firstErr error
	for _, l := range f {
		if err := l.WriteEvent(entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
