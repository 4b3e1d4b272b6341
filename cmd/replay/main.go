// Command replay rebuilds cell state from the persisted event journal and
// verifies it against a snapshot. It catches divergence between the journal
// and the registry's own state export.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"pixelgrid.io/internal/persistence/snapshot"
	"pixelgrid.io/internal/sim/grid"
)

type cellState struct {
	Claimed bool
	Owner   string
	R, G, B uint8
}

func main() {
	var (
		basePath   = flag.String("base", "", "base snapshot path (optional; replay starts from its cursor)")
		eventsDir  = flag.String("events", "", "events dir containing events-*.jsonl.zst")
		verifyPath = flag.String("verify", "", "snapshot to verify the replayed state against (optional)")
		toCursor   = flag.Uint64("to_cursor", 0, "stop after this cursor (inclusive, optional)")
	)
	flag.Parse()

	if *eventsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -events")
		os.Exit(2)
	}

	var cells [grid.Cells]cellState
	var sinceCursor uint64
	if *basePath != "" {
		snap, err := snapshot.ReadSnapshot(*basePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read base snapshot:", err)
			os.Exit(1)
		}
		for _, cv := range snap.Cells {
			cells[cv.ID-1] = cellState{Claimed: cv.Claimed, Owner: cv.Owner, R: cv.R, G: cv.G, B: cv.B}
		}
		sinceCursor = snap.Counters.NextEventCursor
		fmt.Printf("base snapshot grid=%s tick=%d cursor=%d claimed=%d\n",
			snap.Header.GridID, snap.Header.Tick, sinceCursor, snap.Counters.TotalClaimed)
	}

	files, err := listEventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	lastCursor := sinceCursor
	var applied uint64
	for _, path := range files {
		done, err := replayFile(path, &cells, sinceCursor, *toCursor, &lastCursor, &applied)
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if done {
			break
		}
	}

	var claimed int
	for i := range cells {
		if cells[i].Claimed {
			claimed++
		}
	}
	fmt.Printf("replay ok: applied=%d events, last_cursor=%d, claimed=%d\n", applied, lastCursor, claimed)

	if *verifyPath == "" {
		return
	}
	want, err := snapshot.ReadSnapshot(*verifyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read verify snapshot:", err)
		os.Exit(1)
	}
	mismatches := 0
	for _, cv := range want.Cells {
		got := cells[cv.ID-1]
		if got.Claimed != cv.Claimed || got.Owner != cv.Owner || got.R != cv.R || got.G != cv.G || got.B != cv.B {
			fmt.Printf("mismatch cell=%d replayed=%+v snapshot=%+v\n", cv.ID, got, cv)
			mismatches++
		}
	}
	if mismatches > 0 {
		fmt.Fprintf(os.Stderr, "verify failed: %d mismatched cells\n", mismatches)
		os.Exit(1)
	}
	fmt.Printf("verify ok: %d cells match snapshot tick=%d\n", len(want.Cells), want.Header.Tick)
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(path string, cells *[grid.Cells]cellState, sinceCursor, toCursor uint64, lastCursor, applied *uint64) (done bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return false, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry grid.EventLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return false, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if entry.Cursor <= sinceCursor {
			continue
		}
		if toCursor != 0 && entry.Cursor > toCursor {
			return true, nil
		}
		if *lastCursor != 0 && entry.Cursor != *lastCursor+1 {
			return false, fmt.Errorf("cursor gap: want=%d got=%d (file=%s)", *lastCursor+1, entry.Cursor, filepath.Base(path))
		}
		if err := applyEvent(cells, entry.Event); err != nil {
			return false, fmt.Errorf("cursor %d: %w", entry.Cursor, err)
		}
		*lastCursor = entry.Cursor
		*applied++
	}
	return false, sc.Err()
}

func applyEvent(cells *[grid.Cells]cellState, ev map[string]interface{}) error {
	typ, _ := ev["type"].(string)
	switch typ {
	case "CELL_CLAIMED":
		id := intField(ev, "cell")
		if id < 1 || id > grid.Cells {
			return fmt.Errorf("bad cell %d", id)
		}
		c := &cells[id-1]
		if c.Claimed {
			return fmt.Errorf("cell %d claimed twice", id)
		}
		caller, _ := ev["caller"].(string)
		*c = cellState{Claimed: true, Owner: caller, R: 255, G: 255, B: 255}
	case "COLOR_UPDATED":
		id := intField(ev, "cell")
		if id < 1 || id > grid.Cells {
			return fmt.Errorf("bad cell %d", id)
		}
		c := &cells[id-1]
		if !c.Claimed {
			return fmt.Errorf("color update on unclaimed cell %d", id)
		}
		c.R = uint8(intField(ev, "r"))
		c.G = uint8(intField(ev, "g"))
		c.B = uint8(intField(ev, "b"))
	case "TREASURY_WITHDRAWN":
		// No cell state change.
	default:
		return fmt.Errorf("unknown event type %q", typ)
	}
	return nil
}

func intField(ev map[string]interface{}, key string) int {
	switch v := ev[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return -1
	}
}
