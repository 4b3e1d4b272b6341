// Command admin inspects a registry's on-disk state offline: the SQLite
// read-model index and snapshot files. It never talks to a running server.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"pixelgrid.io/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin db|snapshot [flags]")
	os.Exit(2)
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gridID := fs.String("grid", "", "grid id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 50, "result limit")
	sinceCursor := fs.Uint64("since_cursor", 0, "events query: cursor lower bound (exclusive)")
	eventType := fs.String("type", "", "events query: event type filter")
	_ = fs.Parse(args)

	q := "cells"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*gridID) == "" {
			fmt.Fprintln(os.Stderr, "missing -grid or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "grids", *gridID, "index.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 50
	}

	switch q {
	case "cells":
		rows, err := db.Query(`SELECT id,claimed,owner,r,g,b,updated_tick FROM cells WHERE claimed=1 ORDER BY id LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID          int    `json:"id"`
				Claimed     int    `json:"claimed"`
				Owner       string `json:"owner"`
				R           int    `json:"r"`
				G           int    `json:"g"`
				B           int    `json:"b"`
				UpdatedTick uint64 `json:"updated_tick"`
			}
			if err := rows.Scan(&r.ID, &r.Claimed, &r.Owner, &r.R, &r.G, &r.B, &r.UpdatedTick); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "events":
		sel := `SELECT cursor,tick,type,payload FROM events WHERE cursor>? ORDER BY cursor LIMIT ?`
		qargs := []any{*sinceCursor, *limit}
		if strings.TrimSpace(*eventType) != "" {
			sel = `SELECT cursor,tick,type,payload FROM events WHERE cursor>? AND type=? ORDER BY cursor LIMIT ?`
			qargs = []any{*sinceCursor, strings.TrimSpace(*eventType), *limit}
		}
		rows, err := db.Query(sel, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Cursor  uint64          `json:"cursor"`
				Tick    uint64          `json:"tick"`
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			var payload string
			if err := rows.Scan(&r.Cursor, &r.Tick, &r.Type, &payload); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.Payload = json.RawMessage(payload)
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,cells_claimed,recorded_at FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick         uint64 `json:"tick"`
				Path         string `json:"path"`
				CellsClaimed uint64 `json:"cells_claimed"`
				RecordedAt   string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.CellsClaimed, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-grid GRID|-db PATH] cells|events|snapshots")
		os.Exit(2)
	}
}

// snapshotCmd dumps a snapshot file: the header, counters, and claimed cells.
func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "snapshot file path (required)")
	cells := fs.Bool("cells", false, "dump claimed cell records too")
	_ = fs.Parse(args)

	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	printJSON(struct {
		Header   snapshot.Header     `json:"header"`
		Counters snapshot.CountersV1 `json:"counters"`
		Painters int                 `json:"painters"`
	}{snap.Header, snap.Counters, len(snap.Painters)})

	if *cells {
		for _, c := range snap.Cells {
			if !c.Claimed {
				continue
			}
			printJSON(c)
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
