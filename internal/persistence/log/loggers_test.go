package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"pixelgrid.io/internal/protocol"
	"pixelgrid.io/internal/sim/grid"
)

// readJSONL decompresses the single rotated file in dir and decodes each line.
func readJSONL(t *testing.T, dir string, out func([]byte)) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("log files = %v (err %v), want exactly one", matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		out(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
}

func TestAuditWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewAuditWriter(dir)

	entries := []grid.AuditEntry{
		{Tick: 1, Actor: "P1", Action: "CLAIM", Cell: 42, Amount: 100},
		{Tick: 2, Actor: "P1", Action: "SET_COLOR", Cell: 42, R: 255, G: 0, B: 17},
	}
	for _, e := range entries {
		if err := w.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []grid.AuditEntry
	readJSONL(t, dir, func(line []byte) {
		var e grid.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("decode %s: %v", line, err)
		}
		got = append(got, e)
	})
	if len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Fatalf("read back %+v", got)
	}
}

func TestEventWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewEventWriter(dir)

	err := w.WriteEvent(grid.EventLogEntry{
		Cursor: 7,
		Tick:   99,
		Event:  protocol.Event{"type": "CELL_CLAIMED", "cell": 42},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var lines int
	readJSONL(t, dir, func(line []byte) {
		lines++
		var e grid.EventLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.Cursor != 7 || e.Tick != 99 {
			t.Fatalf("entry = %+v", e)
		}
		if typ, _ := e.Event["type"].(string); typ != "CELL_CLAIMED" {
			t.Fatalf("event type = %v", e.Event["type"])
		}
	})
	if lines != 1 {
		t.Fatalf("lines = %d, want 1", lines)
	}
}

func TestPayoutLedgerRecordsTransfers(t *testing.T) {
	dir := t.TempDir()
	p := NewPayoutLedger(dir)

	if err := p.Transfer("vault", 750); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	readJSONL(t, dir, func(line []byte) {
		var rec payoutRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Dest != "vault" || rec.Amount != 750 || rec.Recorded == "" {
			t.Fatalf("record = %+v", rec)
		}
	})
}
